package duckduckgo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

const instantAnswerJSON = `{
	"Heading": "Diabetes",
	"Abstract": "Diabetes mellitus is a group of metabolic disorders.",
	"AbstractURL": "https://en.wikipedia.org/wiki/Diabetes",
	"AbstractSource": "Wikipedia",
	"Answer": "",
	"Definition": "",
	"RelatedTopics": [
		{"Text": "Type 1 diabetes - An autoimmune disease.", "FirstURL": "https://duckduckgo.com/Type_1_diabetes", "Result": "<a href=\"x\">Type 1 diabetes</a>"},
		{"Name": "Symptoms", "Topics": [
			{"Text": "Polyuria - Excessive urination.", "FirstURL": "https://duckduckgo.com/Polyuria"},
			{"Text": "", "Result": "<a href=\"https://duckduckgo.com/Thirst\">Thirst</a> &amp; dry mouth", "FirstURL": "https://duckduckgo.com/Thirst"}
		]},
		{"Text": "Prediabetes", "FirstURL": "https://duckduckgo.com/Prediabetes"}
	]
}`

func TestSearchMapsInstantAnswer(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"q":             q.Get("q"),
			"format":        q.Get("format"),
			"no_html":       q.Get("no_html"),
			"skip_disambig": q.Get("skip_disambig"),
		}
		_, _ = w.Write([]byte(instantAnswerJSON))
	}))
	defer server.Close()

	results, err := New(server.URL+"/", nil).Search(context.Background(), " diabetes symptoms ", 4)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if gotQuery["q"] != "diabetes symptoms" || gotQuery["format"] != "json" || gotQuery["no_html"] != "1" || gotQuery["skip_disambig"] != "1" {
		t.Fatalf("unexpected query params %v", gotQuery)
	}

	want := []domain.WebResult{
		{Title: "Diabetes", Snippet: "Diabetes mellitus is a group of metabolic disorders.", URL: "https://en.wikipedia.org/wiki/Diabetes", Source: "Wikipedia"},
		{Title: "Type 1 diabetes", Snippet: "Type 1 diabetes - An autoimmune disease.", URL: "https://duckduckgo.com/Type_1_diabetes", Source: "DuckDuckGo Related Topics"},
		{Title: "Polyuria", Snippet: "Polyuria - Excessive urination.", URL: "https://duckduckgo.com/Polyuria", Source: "DuckDuckGo Related Topics"},
		{Title: "Thirst & dry mouth", Snippet: "Thirst & dry mouth", URL: "https://duckduckgo.com/Thirst", Source: "DuckDuckGo Related Topics"},
	}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d: %+v", len(want), len(results), results)
	}
	for i := range want {
		if results[i] != want[i] {
			t.Fatalf("result %d = %+v, want %+v", i, results[i], want[i])
		}
	}
}

func TestSearchEmptyPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Heading":"","Abstract":"","RelatedTopics":[]}`))
	}))
	defer server.Close()

	results, err := New(server.URL, nil).Search(context.Background(), "zzzz", 5)
	if err != nil || len(results) != 0 {
		t.Fatalf("expected no results, got %v err=%v", results, err)
	}
}

func TestSearchStatusErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := New(server.URL, nil).Search(context.Background(), "q", 5)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestCleanText(t *testing.T) {
	cases := map[string]string{
		"plain   text\n":                   "plain text",
		"<b>bold</b>&nbsp;and &quot;q&quot;": "bold and \"q\"",
		"a<br/>b":                          "a b",
	}
	for in, want := range cases {
		if got := cleanText(in); got != want {
			t.Fatalf("cleanText(%q) = %q, want %q", in, got, want)
		}
	}
}
