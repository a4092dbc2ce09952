package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/stemsi/exstem-client/internal/api"
	"github.com/stemsi/exstem-client/internal/config"
	"github.com/stemsi/exstem-client/internal/credential"
	"github.com/stemsi/exstem-client/internal/logger"
	"github.com/stemsi/exstem-client/internal/model"
	"github.com/stemsi/exstem-client/internal/results"
	"github.com/stemsi/exstem-client/internal/session"
	"github.com/stemsi/exstem-client/internal/store"
	"github.com/stemsi/exstem-client/internal/stream"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().Str("api", cfg.APIBaseURL).Msg("Starting ExStem exam client")

	ctx := context.Background()

	// ─── Credential & API client ───────────────────────────────────────
	creds := credential.NewStore(cfg.TokenPath)
	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, creds, log)

	reader := bufio.NewReader(os.Stdin)

	if err := ensureLogin(ctx, reader, client, creds); err != nil {
		log.Fatal().Err(err).Msg("Login failed")
	}

	// ─── Attempt store ─────────────────────────────────────────────────
	attemptStore, err := openAttemptStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open attempt store")
	}
	defer attemptStore.Close()

	// ─── Pick an exam ──────────────────────────────────────────────────
	examID, err := pickExam(ctx, reader, client)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to choose an exam")
	}

	// ─── Run the session ───────────────────────────────────────────────
	ctrl := session.NewController(examID, session.Deps{
		API:         client,
		Credentials: creds,
		Store:       attemptStore,
		StudentRef:  studentRef(creds),
		Log:         log,
	})
	defer ctrl.Close()

	if err := ctrl.Load(ctx); err != nil {
		snap := ctrl.Snapshot()
		fmt.Printf("Could not start the exam: %s\n", snap.Cause)
		os.Exit(1)
	}

	var autosave *stream.Client
	if cfg.StreamEnabled {
		autosave, err = stream.Dial(ctx, cfg.WSBaseURL, examID, creds.Token(), log)
		if err != nil {
			log.Warn().Err(err).Msg("Exam stream unavailable, continuing with REST only")
			autosave = nil
		} else {
			defer autosave.Close()
		}
	}

	runSession(ctx, reader, ctrl, autosave, log)

	// ─── Resolve the result ────────────────────────────────────────────
	snap := ctrl.Snapshot()
	if snap.Phase != session.PhaseSubmitted {
		fmt.Printf("Session ended in %s: %s\n", snap.Phase, snap.Cause)
		os.Exit(1)
	}

	resolver := results.NewResolver(client, cfg.ResultAttempts, cfg.ResultBackoff, log)
	resolution, err := resolver.Await(ctx, examID)
	if err != nil {
		fmt.Println("Submitted. Your result could not be looked up right now — check the results page later.")
		return
	}
	switch resolution.Status {
	case results.StatusFound:
		fmt.Printf("Score: %.1f / %.1f\n", resolution.Result.Score, resolution.Result.MaxScore)
	default:
		fmt.Println("Submitted. Scoring is still in progress — check the results page shortly.")
	}
}

// ensureLogin prompts for credentials unless a live token is already held.
func ensureLogin(ctx context.Context, reader *bufio.Reader, client *api.Client, creds *credential.Store) error {
	if creds.Check(time.Now()) == nil {
		return nil
	}
	creds.Clear()

	fmt.Print("Username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username is required")
	}

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	token, err := client.Login(ctx, username, string(bytePassword))
	if err != nil {
		return err
	}
	return creds.Set(token)
}

// studentRef derives a stable per-student key for the attempt store from
// the token's subject claim.
func studentRef(creds *credential.Store) string {
	if sub := creds.Subject(); sub != "" {
		return sub
	}
	return "local"
}

func openAttemptStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.AttemptStore, error) {
	switch cfg.AttemptStore {
	case "redis":
		return store.NewRedisStore(ctx, cfg.RedisURL, log)
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return store.NewSQLiteStore(cfg.AttemptDBPath)
	}
}

func pickExam(ctx context.Context, reader *bufio.Reader, client *api.Client) (uuid.UUID, error) {
	exams, err := client.FetchMyExams(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if len(exams) == 0 {
		return uuid.Nil, fmt.Errorf("no exams available")
	}

	fmt.Println("\nAvailable exams:")
	for i, exam := range exams {
		fmt.Printf("  %d. %s (%d min) [%s]\n", i+1, exam.Title, exam.DurationMinutes, exam.Status)
	}
	fmt.Print("Choose an exam: ")

	line, _ := reader.ReadString('\n')
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(exams) {
		return uuid.Nil, fmt.Errorf("invalid choice")
	}
	return exams[n-1].ID, nil
}

// runSession drives the REPL until the session leaves RUNNING.
func runSession(ctx context.Context, reader *bufio.Reader, ctrl *session.Controller, autosave *stream.Client, log zerolog.Logger) {
	fmt.Println("\nCommands: a <option>  t <text>  n(ext)  p(rev)  g <question#>  l(ist)  s(ubmit)")

	for {
		snap := ctrl.Snapshot()
		if snap.Phase != session.PhaseRunning {
			return
		}

		question, answer, ok := ctrl.Question(snap.Current)
		if !ok {
			return
		}
		printQuestion(snap, question, answer)

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		switch strings.ToLower(cmd) {
		case "a":
			idx, err := strconv.Atoi(strings.TrimSpace(arg))
			if err != nil || idx < 1 || idx > question.OptionCount() {
				fmt.Printf("Pick an option between 1 and %d.\n", question.OptionCount())
				continue
			}
			applyAnswer(ctrl, autosave, snap.Current, question, model.SelectedOption(idx-1), log)
		case "t":
			text := strings.TrimSpace(arg)
			if text == "" {
				fmt.Println("Empty answer ignored.")
				continue
			}
			applyAnswer(ctrl, autosave, snap.Current, question, model.FreeText(text), log)
		case "n":
			_ = ctrl.Next()
		case "p":
			_ = ctrl.Previous()
		case "g":
			n, err := strconv.Atoi(strings.TrimSpace(arg))
			if err != nil {
				fmt.Println("Usage: g <question#>")
				continue
			}
			_ = ctrl.GoTo(n - 1)
		case "l":
			printStatuses(snap)
		case "s":
			if autosave != nil {
				if score, err := autosave.Submit(); err == nil {
					log.Info().Float64("score", score).Msg("stream graded the attempt")
				}
			}
			if err := ctrl.Submit(ctx); err != nil {
				fmt.Printf("Submission failed: %v\nYour answers are kept — type 's' to retry.\n", err)
			}
		case "":
		default:
			fmt.Println("Unknown command.")
		}
	}
}

func applyAnswer(ctrl *session.Controller, autosave *stream.Client, position int, question model.Question, answer model.Answer, log zerolog.Logger) {
	if err := ctrl.Answer(position, answer); err != nil {
		fmt.Printf("Could not record answer: %v\n", err)
		return
	}
	if autosave != nil {
		if err := autosave.Autosave(question.ID, answer); err != nil {
			log.Warn().Err(err).Msg("stream autosave failed")
		}
	}
}

func printQuestion(snap session.Snapshot, question model.Question, answer model.Answer) {
	fmt.Printf("\n[%02d:%02d left] Question %d/%d (%d answered)\n",
		snap.RemainingS/60, snap.RemainingS%60, snap.Current+1, snap.Total, snap.Completion)
	fmt.Println(stripTags(question.Prompt))

	if question.Type == model.QuestionTypeMultipleChoice {
		for i, opt := range question.Options {
			marker := " "
			if answer.Kind == model.AnswerOption && answer.Option == i {
				marker = "*"
			}
			fmt.Printf(" %s %d. %s\n", marker, i+1, opt)
		}
	} else if answer.Kind == model.AnswerText {
		fmt.Printf("  Your answer: %s\n", answer.Text)
	}
	fmt.Print("> ")
}

func printStatuses(snap session.Snapshot) {
	for i, status := range snap.Statuses {
		fmt.Printf("  %2d: %s\n", i+1, status)
	}
}

// stripTags flattens the HTML prompt for terminal display. Prompts are
// authored rich text; anything inside angle brackets is presentation.
func stripTags(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
