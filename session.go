package main

import (
	"encoding/json"
	"net/http"
)

// Session collects the response data of one request and renders it as JSON.
type Session struct {
	td TemplateData
	ln *Language
}

type TemplateData map[string]interface{}

func NewSession(c *Config, ln *Language) *Session {
	return &Session{
		td: NewTemplateData(c),
		ln: ln,
	}
}

func NewTemplateData(c *Config) TemplateData {
	td := make(TemplateData)
	td.Set("title", c.Title)
	return td
}

func (s *Session) Lang(text string) string {
	return s.ln.Lang(text)
}

func (s *Session) render(w http.ResponseWriter, status int) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(s.td)
}

func (td TemplateData) Set(name string, value interface{}) {
	td[name] = value
}

func (s *Session) Set(name string, value interface{}) {
	s.td.Set(name, value)
}
