package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-client/internal/model"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, handler http.Handler, token string) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(server.URL, 5*time.Second, staticToken(token), zerolog.Nop())
	return client, server
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, code ErrCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":  nil,
		"error": map[string]string{"code": string(code), "message": message},
	})
}

func TestFetchExamDecodesEnvelope(t *testing.T) {
	examID := uuid.New()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/exams/"+examID.String() {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		writeData(w, http.StatusOK, map[string]any{
			"id":               examID,
			"title":            "Algebra I",
			"duration_minutes": 45,
		})
	}), "tok")

	exam, err := client.FetchExam(context.Background(), examID)
	if err != nil {
		t.Fatalf("FetchExam failed: %v", err)
	}
	if exam.Title != "Algebra I" || exam.DurationMinutes != 45 {
		t.Fatalf("unexpected exam: %+v", exam)
	}
}

func TestFetchExamRejectsMalformedPayload(t *testing.T) {
	examID := uuid.New()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// duration_minutes missing: fails validation client-side.
		writeData(w, http.StatusOK, map[string]any{"id": examID, "title": "Broken"})
	}), "tok")

	_, err := client.FetchExam(context.Background(), examID)
	if CodeOf(err) != ErrValidation {
		t.Fatalf("CodeOf(err) = %s, want VALIDATION_ERROR (err: %v)", CodeOf(err), err)
	}
}

func TestMissingTokenFailsBeforeNetwork(t *testing.T) {
	called := false
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		writeData(w, http.StatusOK, nil)
	}), "")

	_, err := client.FetchQuestions(context.Background(), uuid.New())
	if CodeOf(err) != ErrTokenRequired {
		t.Fatalf("CodeOf(err) = %s, want TOKEN_REQUIRED", CodeOf(err))
	}
	if called {
		t.Fatal("request reached the server without a token")
	}
}

func TestErrorCodePassthroughAndStatusMapping(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     func(w http.ResponseWriter)
		wantCode ErrCode
	}{
		{
			name:     "server code passes through",
			status:   http.StatusForbidden,
			body:     func(w http.ResponseWriter) { writeError(w, http.StatusForbidden, ErrExamClosed, "window closed") },
			wantCode: ErrExamClosed,
		},
		{
			name:     "bare 401 maps to token invalid",
			status:   http.StatusUnauthorized,
			body:     func(w http.ResponseWriter) { w.WriteHeader(http.StatusUnauthorized) },
			wantCode: ErrTokenInvalid,
		},
		{
			name:     "bare 404 maps to not found",
			status:   http.StatusNotFound,
			body:     func(w http.ResponseWriter) { w.WriteHeader(http.StatusNotFound) },
			wantCode: ErrNotFound,
		},
		{
			name:     "bare 500 maps to server error",
			status:   http.StatusInternalServerError,
			body:     func(w http.ResponseWriter) { w.WriteHeader(http.StatusInternalServerError) },
			wantCode: ErrServer,
		},
		{
			name:     "422 maps to validation",
			status:   http.StatusUnprocessableEntity,
			body:     func(w http.ResponseWriter) { w.WriteHeader(http.StatusUnprocessableEntity) },
			wantCode: ErrValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				tc.body(w)
			}), "tok")

			_, err := client.FetchExam(context.Background(), uuid.New())
			if CodeOf(err) != tc.wantCode {
				t.Fatalf("CodeOf(err) = %s, want %s (err: %v)", CodeOf(err), tc.wantCode, err)
			}
		})
	}
}

func TestTransportFailureIsServiceUnavailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // connection refused from here on
	client := NewClient(server.URL, time.Second, staticToken("tok"), zerolog.Nop())

	_, err := client.FetchExam(context.Background(), uuid.New())
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("err = %v, want ErrServiceUnavailable", err)
	}
}

func TestSubmitAnswersPayloadShape(t *testing.T) {
	examID := uuid.New()
	q1, q2 := uuid.New(), uuid.New()

	var received model.SubmitRequest
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/results/submit" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		writeData(w, http.StatusCreated, map[string]any{
			"exam_id":   examID,
			"result_id": uuid.New(),
		})
	}), "tok")

	pairs := []model.AnswerPair{
		{QuestionID: q1, AnswerIndex: 2},
		{QuestionID: q2, AnswerIndex: model.UnansweredIndex},
	}
	ack, err := client.SubmitAnswers(context.Background(), examID, pairs)
	if err != nil {
		t.Fatalf("SubmitAnswers failed: %v", err)
	}
	if ack.ExamID != examID {
		t.Fatalf("ack exam = %s, want %s", ack.ExamID, examID)
	}

	if received.ExamID != examID {
		t.Fatalf("payload exam_id = %s", received.ExamID)
	}
	if len(received.Answers) != 2 || received.Answers[0].AnswerIndex != 2 || received.Answers[1].AnswerIndex != -1 {
		t.Fatalf("payload answers = %+v", received.Answers)
	}
}

func TestSubmitAnswersRejectsEmptyList(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("empty submission reached the server")
	}), "tok")

	_, err := client.SubmitAnswers(context.Background(), uuid.New(), nil)
	if CodeOf(err) != ErrValidation {
		t.Fatalf("CodeOf(err) = %s, want VALIDATION_ERROR", CodeOf(err))
	}
}

func TestFetchMyResults(t *testing.T) {
	examID := uuid.New()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/results/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeData(w, http.StatusOK, map[string]any{
			"results": []map[string]any{
				{"exam_id": examID, "score": 80.0, "max_score": 100.0},
			},
		})
	}), "tok")

	list, err := client.FetchMyResults(context.Background())
	if err != nil {
		t.Fatalf("FetchMyResults failed: %v", err)
	}
	if len(list) != 1 || list[0].ExamID != examID || list[0].Score != 80 {
		t.Fatalf("unexpected results: %+v", list)
	}
}

func TestLoginDoesNotSendAuthHeader(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("login sent Authorization %q", got)
		}
		writeData(w, http.StatusOK, map[string]string{"token": "fresh-token"})
	}), "")

	token, err := client.Login(context.Background(), "student", "secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token != "fresh-token" {
		t.Fatalf("token = %q", token)
	}
}
