package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/validator"
)

// TokenSource supplies the bearer credential for authenticated calls.
// An empty token means "no credential held".
type TokenSource interface {
	Token() string
}

// Client is the REST collaborator client for the ExStem student API.
// It understands the server's response envelope and maps failures onto
// the ErrCode taxonomy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	validate   *validator.Validator
	log        zerolog.Logger
}

// NewClient creates a Client against baseURL (e.g. http://host/api/v1).
// A nil httpClient gets a default with the given timeout.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, log zerolog.Logger) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080/api/v1"
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		validate:   validator.New(),
		log:        log.With().Str("component", "api_client").Logger(),
	}
}

// ─── Envelope ───────────────────────────────────────────────────────

// envelope is the server's standard response wrapper.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *errorBody      `json:"error,omitempty"`
}

type errorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ─── Auth ───────────────────────────────────────────────────────────

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp loginResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/login", loginRequest{
		Username: username,
		Password: password,
	}, &resp, false)
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", &Error{Code: ErrInvalidCredentials, Message: "login response carried no token"}
	}
	return resp.Token, nil
}

// ─── Exams & questions ──────────────────────────────────────────────

// FetchExam retrieves exam metadata by ID.
func (c *Client) FetchExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	var exam model.Exam
	path := "/exams/" + url.PathEscape(examID.String())
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &exam, true); err != nil {
		return nil, fmt.Errorf("fetch exam: %w", err)
	}
	if fields := c.validate.Check(exam); fields != nil {
		return nil, &Error{Code: ErrValidation, Message: "malformed exam payload", Fields: fields}
	}
	return &exam, nil
}

type questionsResponse struct {
	Questions []model.Question `json:"questions"`
}

// FetchQuestions retrieves the ordered question sequence for an exam.
// The returned order is authoritative for presentation and submission.
func (c *Client) FetchQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	var resp questionsResponse
	path := "/exams/" + url.PathEscape(examID.String()) + "/questions"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp, true); err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}
	for i := range resp.Questions {
		if fields := c.validate.Check(resp.Questions[i]); fields != nil {
			return nil, &Error{Code: ErrValidation, Message: fmt.Sprintf("malformed question %d", i), Fields: fields}
		}
	}
	return resp.Questions, nil
}

type lobbyResponse struct {
	Exams []model.LobbyExam `json:"exams"`
}

// FetchMyExams lists exams available to the current student.
func (c *Client) FetchMyExams(ctx context.Context) ([]model.LobbyExam, error) {
	var resp lobbyResponse
	if err := c.doJSON(ctx, http.MethodGet, "/student/lobby", nil, &resp, true); err != nil {
		return nil, fmt.Errorf("fetch lobby: %w", err)
	}
	return resp.Exams, nil
}

// ─── Submission & results ───────────────────────────────────────────

// SubmitAnswers posts the ordered answer list for an exam. The answers
// slice must be aligned with the fetched question order.
func (c *Client) SubmitAnswers(ctx context.Context, examID uuid.UUID, answers []model.AnswerPair) (*model.SubmitAck, error) {
	req := model.SubmitRequest{ExamID: examID, Answers: answers}
	if fields := c.validate.Check(req); fields != nil {
		return nil, &Error{Code: ErrValidation, Message: "malformed submission payload", Fields: fields}
	}

	var ack model.SubmitAck
	if err := c.doJSON(ctx, http.MethodPost, "/results/submit", req, &ack, true); err != nil {
		return nil, fmt.Errorf("submit answers: %w", err)
	}
	return &ack, nil
}

type resultsResponse struct {
	Results []model.Result `json:"results"`
}

// FetchMyResults lists the current student's exam results. Absence of a
// particular exam in the list is not an error — scoring may lag submission.
func (c *Client) FetchMyResults(ctx context.Context) ([]model.Result, error) {
	var resp resultsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/results/me", nil, &resp, true); err != nil {
		return nil, fmt.Errorf("fetch results: %w", err)
	}
	return resp.Results, nil
}

// ─── Transport ──────────────────────────────────────────────────────

func (c *Client) doJSON(ctx context.Context, method, path string, requestBody, responseBody any, authed bool) error {
	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token := ""
		if c.tokens != nil {
			token = c.tokens.Token()
		}
		if token == "" {
			return &Error{Code: ErrTokenRequired}
		}
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(response.Body).Decode(&env)

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := &Error{StatusCode: response.StatusCode, Code: codeForStatus(response.StatusCode)}
		if decodeErr == nil && env.Error != nil {
			if env.Error.Code != "" {
				apiErr.Code = env.Error.Code
			}
			apiErr.Message = env.Error.Message
			apiErr.Fields = env.Error.Fields
		}
		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", response.StatusCode).
			Str("code", string(apiErr.Code)).
			Msg("request failed")
		return apiErr
	}

	if responseBody == nil {
		return nil
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("response carried no data")
	}
	return json.Unmarshal(env.Data, responseBody)
}

func codeForStatus(status int) ErrCode {
	switch {
	case status == http.StatusUnauthorized:
		return ErrTokenInvalid
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status >= 500:
		return ErrServer
	default:
		return ErrServer
	}
}
