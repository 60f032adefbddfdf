package localquiz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/kbquiz/internal/quiz"
)

const yamlQuiz = `
title: Expense policy
pass_percent: 60
questions:
  - question: Who approves travel over 5k?
    options: [Manager, Director, CFO]
    answer: B
    explanation: Director sign-off is required above 5k.
  - question: Receipts are needed above?
    options: ["25", "50"]
    answer: A
`

func sampleDoc() *Document {
	return &Document{
		ID:    "policy",
		Title: "Policy",
		Questions: []Item{
			{Question: "One?", Options: []string{"a", "b"}, Answer: "A"},
			{Question: "Two?", Options: []string{"a", "b", "c"}, Answer: "C"},
			{Question: "Three?", Options: []string{"a", "b", "c", "d"}, Answer: "D"},
		},
	}
}

func TestLoad_YAMLTakesIDFromFileName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "expenses.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlQuiz), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "expenses", d.ID)
	assert.Equal(t, 60, d.PassPercent)
	require.Len(t, d.Questions, 2)
	assert.Equal(t, "B", d.Questions[0].Answer)
}

func TestDocument_QuizStripsAnswers(t *testing.T) {
	q := sampleDoc().Quiz()
	raw, err := json.Marshal(q)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"answer"`)
	assert.Equal(t, 3, q.Len())
}

func TestDocument_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Document)
	}{
		{"answer beyond choices", func(d *Document) { d.Questions[0].Answer = "C" }},
		{"missing answer", func(d *Document) { d.Questions[1].Answer = "" }},
		{"no questions", func(d *Document) { d.Questions = nil }},
		{"pass percent too high", func(d *Document) { d.PassPercent = 101 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sampleDoc()
			tt.mutate(d)
			assert.ErrorIs(t, d.Validate(), quiz.ErrMalformedQuiz)
		})
	}
	assert.NoError(t, sampleDoc().Validate())
}

func TestDocument_Grade(t *testing.T) {
	d := sampleDoc()
	res, err := d.Grade(map[int]string{1: "A", 2: "B", 3: "D"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Correct)
	assert.Equal(t, 3, res.Total)
	assert.InDelta(t, 66.67, res.Percentage, 0.01)
	assert.False(t, res.Passed, "below the default 70%")
	require.Len(t, res.Outcomes, 3)
	assert.Equal(t, "C", res.Outcomes[1].Correct)
	assert.False(t, res.Outcomes[1].IsCorrect)

	d.PassPercent = 60
	res, err = d.Grade(map[int]string{1: "A", 2: "B", 3: "D"})
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestDocument_GradeRejectsBadAnswers(t *testing.T) {
	for _, answers := range []map[int]string{
		{1: "A", 2: "C"},
		{1: "A", 2: "C", 3: "E"},
		{1: "A", 2: "C", 3: "D", 4: "A"},
	} {
		_, err := sampleDoc().Grade(answers)
		assert.ErrorIs(t, err, quiz.ErrInvalidAnswers, "answers %v", answers)
	}
}

func TestSaveAndOpenDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(filepath.Join(dir, "policy.json"), sampleDoc()))
	other := sampleDoc()
	other.ID = "other"
	require.NoError(t, Save(filepath.Join(dir, "other.yml"), other))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# notes"), 0o644))

	lib, err := OpenDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"other", "policy"}, lib.IDs())

	ctx := context.Background()
	q, err := lib.Fetch(ctx, "policy")
	require.NoError(t, err)
	assert.Equal(t, "Policy", q.Title)

	_, err = lib.Fetch(ctx, "missing")
	assert.ErrorIs(t, err, quiz.ErrNotFound)

	res, err := lib.Submit(ctx, "other", map[int]string{1: "A", 2: "C", 3: "D"})
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestOpenDir_DuplicateID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(filepath.Join(dir, "a.json"), sampleDoc()))
	require.NoError(t, Save(filepath.Join(dir, "b.json"), sampleDoc()))
	_, err := OpenDir(dir)
	assert.ErrorContains(t, err, "duplicate quiz id")
}

func TestServer(t *testing.T) {
	srv := httptest.NewServer(NewServer(NewLibrary(sampleDoc()), "secret").Handler())
	defer srv.Close()

	do := func(method, path, body, token string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	assert.Equal(t, http.StatusUnauthorized, do("GET", "/api/quizzes/policy", "", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, do("GET", "/api/quizzes/policy", "", "wrong").StatusCode)
	assert.Equal(t, http.StatusNotFound, do("GET", "/api/quizzes/nope", "", "secret").StatusCode)

	resp := do("GET", "/api/quizzes/policy", "", "secret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var q quiz.Quiz
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&q))
	assert.Equal(t, 3, q.Len())

	resp = do("POST", "/api/quizzes/policy/submit", `{"answers":{"1":"A"}}`, "secret")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do("POST", "/api/quizzes/policy/submit", `{"answers":{"1":"a","2":"C","3":"D"}}`, "secret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res quiz.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, 3, res.Correct)
	assert.True(t, res.Passed)
}
