// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

//go:build integration

package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/fundhub/fundhub/internal/web"
)

const password = "Str0ngPass"

type envelope struct {
	Message string           `json:"message"`
	Data    json.RawMessage  `json:"data"`
	Errors  []web.FieldError `json:"errors"`
}

type response struct {
	status  int
	body    envelope
	cookies []*http.Cookie
}

// call sends a JSON request, authenticating with token when it is not empty.
func call(method, path, token string, body any) response {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(env.ctx, method, env.server.URL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: web.DefaultCookieName, Value: token})
	}

	resp, err := env.server.Client().Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var out envelope
	Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
	return response{status: resp.StatusCode, body: out, cookies: resp.Cookies()}
}

func register(username string) response {
	return call(http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": password,
	})
}

// login returns the session token issued for username.
func login(username string) string {
	resp := call(http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	Expect(resp.status).To(Equal(http.StatusOK))

	var data struct {
		Token string `json:"token"`
	}
	Expect(json.Unmarshal(resp.body.Data, &data)).To(Succeed())
	Expect(data.Token).To(HaveLen(64))
	return data.Token
}

func sessionCount() int {
	var n int
	Expect(env.pool.QueryRow(env.ctx, "SELECT count(*) FROM sessions").Scan(&n)).To(Succeed())
	return n
}

var _ = Describe("Registration", func() {
	It("stores the account and hides the password digest", func() {
		resp := register("alice")

		Expect(resp.status).To(Equal(http.StatusCreated))
		Expect(resp.body.Message).To(Equal("User registered successfully"))
		Expect(string(resp.body.Data)).NotTo(ContainSubstring(password))
		Expect(string(resp.body.Data)).NotTo(ContainSubstring("argon2id"))

		var digest string
		Expect(env.pool.QueryRow(env.ctx,
			"SELECT password_hash FROM identities WHERE username = 'alice'").Scan(&digest)).To(Succeed())
		Expect(digest).To(HavePrefix("$argon2id$"))
	})

	It("rejects a username that differs only in case", func() {
		Expect(register("alice").status).To(Equal(http.StatusCreated))

		resp := call(http.MethodPost, "/auth/register", "", map[string]string{
			"username": "ALICE",
			"email":    "other@example.com",
			"password": password,
		})

		Expect(resp.status).To(Equal(http.StatusConflict))
		Expect(resp.body.Message).To(Equal("Username already exists"))
	})

	It("rejects a duplicate email", func() {
		Expect(register("alice").status).To(Equal(http.StatusCreated))

		resp := call(http.MethodPost, "/auth/register", "", map[string]string{
			"username": "alice2",
			"email":    "Alice@Example.com",
			"password": password,
		})

		Expect(resp.status).To(Equal(http.StatusConflict))
		Expect(resp.body.Message).To(Equal("Email already exists"))
	})

	It("reports invalid fields without touching the database", func() {
		resp := call(http.MethodPost, "/auth/register", "", map[string]string{
			"username": "al",
			"email":    "not-an-email",
			"password": "short",
		})

		Expect(resp.status).To(Equal(http.StatusBadRequest))
		Expect(resp.body.Errors).NotTo(BeEmpty())

		var n int
		Expect(env.pool.QueryRow(env.ctx, "SELECT count(*) FROM identities").Scan(&n)).To(Succeed())
		Expect(n).To(BeZero())
	})
})

var _ = Describe("Sessions", func() {
	BeforeEach(func() {
		Expect(register("alice").status).To(Equal(http.StatusCreated))
	})

	It("issues an HttpOnly cookie and admits the holder to the dashboard", func() {
		resp := call(http.MethodPost, "/auth/login", "", map[string]string{
			"email":    "alice@example.com",
			"password": password,
		})
		Expect(resp.status).To(Equal(http.StatusOK))

		var cookie *http.Cookie
		for _, c := range resp.cookies {
			if c.Name == web.DefaultCookieName {
				cookie = c
			}
		}
		Expect(cookie).NotTo(BeNil())
		Expect(cookie.HttpOnly).To(BeTrue())

		dash := call(http.MethodGet, "/auth/dashboard", cookie.Value, nil)
		Expect(dash.status).To(Equal(http.StatusOK))
		Expect(dash.body.Message).To(Equal("Welcome to the dashboard!"))
		Expect(string(dash.body.Data)).To(ContainSubstring(`"alice"`))
	})

	It("stores only a digest of the token", func() {
		token := login("alice")

		var stored string
		Expect(env.pool.QueryRow(env.ctx, "SELECT token_hash FROM sessions").Scan(&stored)).To(Succeed())
		Expect(stored).NotTo(Equal(token))
		Expect(stored).To(HaveLen(64))
	})

	It("gives the same answer for a wrong password and an unknown user", func() {
		wrong := call(http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "Wr0ngPass"})
		unknown := call(http.MethodPost, "/auth/login", "", map[string]string{"username": "nobody", "password": password})

		Expect(wrong.status).To(Equal(http.StatusUnauthorized))
		Expect(unknown.status).To(Equal(wrong.status))
		Expect(unknown.body).To(Equal(wrong.body))
	})

	It("ends only the presented session on logout", func() {
		first := login("alice")
		second := login("alice")

		Expect(call(http.MethodPost, "/auth/logout", first, nil).status).To(Equal(http.StatusOK))

		Expect(call(http.MethodGet, "/auth/dashboard", first, nil).status).To(Equal(http.StatusUnauthorized))
		Expect(call(http.MethodGet, "/auth/dashboard", second, nil).status).To(Equal(http.StatusOK))
	})

	It("ends every session of the caller on logout-all", func() {
		Expect(register("bob").status).To(Equal(http.StatusCreated))
		first := login("alice")
		second := login("alice")
		bobs := login("bob")

		Expect(call(http.MethodPost, "/auth/logout-all", first, nil).status).To(Equal(http.StatusOK))

		Expect(call(http.MethodGet, "/auth/dashboard", first, nil).status).To(Equal(http.StatusUnauthorized))
		Expect(call(http.MethodGet, "/auth/dashboard", second, nil).status).To(Equal(http.StatusUnauthorized))
		Expect(call(http.MethodGet, "/auth/dashboard", bobs, nil).status).To(Equal(http.StatusOK))
	})

	It("lists the caller's sessions without token material", func() {
		token := login("alice")
		login("alice")

		resp := call(http.MethodGet, "/auth/sessions", token, nil)

		Expect(resp.status).To(Equal(http.StatusOK))
		var data struct {
			Sessions []map[string]any `json:"sessions"`
		}
		Expect(json.Unmarshal(resp.body.Data, &data)).To(Succeed())
		Expect(data.Sessions).To(HaveLen(2))
		Expect(strings.ToLower(string(resp.body.Data))).NotTo(ContainSubstring("hash"))
	})

	It("rejects and removes an expired session", func() {
		token := login("alice")
		Expect(sessionCount()).To(Equal(1))

		env.clock.offset = 2 * time.Hour

		Expect(call(http.MethodGet, "/auth/dashboard", token, nil).status).To(Equal(http.StatusUnauthorized))
		Expect(sessionCount()).To(BeZero())
	})

	It("sweeps expired sessions in bulk", func() {
		login("alice")
		login("alice")
		env.clock.offset = 2 * time.Hour

		removed, err := env.sessions.Sweep(env.ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(Equal(int64(2)))
		Expect(sessionCount()).To(BeZero())
	})

	It("rejects a session whose account was deleted", func() {
		token := login("alice")
		_, err := env.pool.Exec(env.ctx, "DELETE FROM identities WHERE username = 'alice'")
		Expect(err).NotTo(HaveOccurred())

		Expect(call(http.MethodGet, "/auth/dashboard", token, nil).status).To(Equal(http.StatusUnauthorized))
		Expect(sessionCount()).To(BeZero())
	})
})

var _ = Describe("Projects", func() {
	var token string

	BeforeEach(func() {
		Expect(register("alice").status).To(Equal(http.StatusCreated))
		token = login("alice")
	})

	create := func(title string) response {
		return call(http.MethodPost, "/projects", token, map[string]any{
			"title":       title,
			"description": "Community garden beds",
			"goalAmount":  5000,
		})
	}

	It("creates a project owned by the caller and reads it back", func() {
		resp := create("Garden beds")
		Expect(resp.status).To(Equal(http.StatusCreated))

		var created struct {
			Project struct {
				ID        string `json:"id"`
				CreatorID string `json:"creatorId"`
			} `json:"project"`
		}
		Expect(json.Unmarshal(resp.body.Data, &created)).To(Succeed())
		Expect(created.Project.ID).NotTo(BeEmpty())

		got := call(http.MethodGet, "/projects/"+created.Project.ID, "", nil)
		Expect(got.status).To(Equal(http.StatusOK))
		Expect(string(got.body.Data)).To(ContainSubstring("Garden beds"))
		Expect(string(got.body.Data)).To(ContainSubstring(created.Project.CreatorID))
	})

	It("requires a session to create", func() {
		token = ""
		Expect(create("Garden beds").status).To(Equal(http.StatusUnauthorized))
	})

	It("lists projects newest first with paging", func() {
		for _, title := range []string{"First project", "Second project", "Third project"} {
			Expect(create(title).status).To(Equal(http.StatusCreated))
		}

		resp := call(http.MethodGet, "/projects?limit=2", "", nil)
		Expect(resp.status).To(Equal(http.StatusOK))

		var data struct {
			Projects []struct {
				Title string `json:"title"`
			} `json:"projects"`
		}
		Expect(json.Unmarshal(resp.body.Data, &data)).To(Succeed())
		Expect(data.Projects).To(HaveLen(2))
		Expect(data.Projects[0].Title).To(Equal("Third project"))
	})

	It("returns 404 for an unknown id", func() {
		resp := call(http.MethodGet, "/projects/01ARZ3NDEKTSV4RRFFQ69G5FAV", "", nil)
		Expect(resp.status).To(Equal(http.StatusNotFound))
	})
})
