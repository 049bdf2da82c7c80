// Package review serves the upload form and the interactive notes and quiz
// review pages.
package review

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"

	"github.com/Nephrolytics-ai/study-notes/pkg/logging"
	"github.com/Nephrolytics-ai/study-notes/pkg/pipeline"
	"github.com/Nephrolytics-ai/study-notes/pkg/study"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
)

const (
	cookieName   = "study-review"
	sessionIDKey = "sid"
	uploadField  = "file"
	pageTitle    = "Lecture study notes"
)

//go:embed templates/*.html
var templateFS embed.FS

// Processor runs one upload through the pipeline.
type Processor interface {
	Process(ctx context.Context, filename string, media io.Reader) (*pipeline.Result, error)
}

type Handler struct {
	processor      Processor
	store          *Store
	cookies        sessions.Store
	templates      *template.Template
	maxUploadBytes int64
}

type HandlerOption func(*Handler)

func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handler) {
		h.maxUploadBytes = n
	}
}

func NewHandler(processor Processor, store *Store, cookies sessions.Store, opts ...HandlerOption) (*Handler, error) {
	if processor == nil || store == nil || cookies == nil {
		return nil, errors.New("processor, store and cookie store are required")
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	h := &Handler{
		processor:      processor,
		store:          store,
		cookies:        cookies,
		templates:      templates,
		maxUploadBytes: 500 << 20,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.UploadForm)
	r.Post("/review", h.Upload)
	r.Get("/review", h.Review)
	r.Post("/review/submit", h.Submit)
}

type uploadPage struct {
	Title string
	Error string
}

type optionView struct {
	Position int
	Text     string
	Selected bool
}

type questionView struct {
	Number  int
	Field   string
	Text    string
	Options []optionView
	Outcome *study.Outcome
}

type reviewPage struct {
	Title     string
	Filename  string
	NotesHTML template.HTML
	Summary   string
	Questions []questionView
	Graded    bool
	Correct   int
}

func (h *Handler) UploadForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "upload", uploadPage{Title: pageTitle})
}

// Upload runs the pipeline and replaces the browser's review session, so all
// answers start unanswered.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	log := logging.NewLogger(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		log.Warnf("invalid upload: %v", err)
		h.render(w, r, http.StatusBadRequest, "upload", uploadPage{Title: pageTitle, Error: "a media file is required"})
		return
	}
	defer file.Close()

	result, err := h.processor.Process(r.Context(), header.Filename, file)
	if err != nil {
		h.render(w, r, pipeline.StatusCode(err), "upload", uploadPage{Title: pageTitle, Error: pipeline.Message(err)})
		return
	}

	cookie := h.reviewCookie(r)
	if previous, ok := cookie.Values[sessionIDKey].(string); ok {
		h.store.Delete(previous)
	}

	session := h.store.Create(result.Filename, result.NormalizedNotes, result.Quiz)
	cookie.Values[sessionIDKey] = session.ID
	if err := cookie.Save(r, w); err != nil {
		log.Errorf("error: %v", err)
		http.Error(w, "could not save session", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/review", http.StatusSeeOther)
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	session, ok := h.currentSession(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderReview(w, r, session)
}

// Submit grades all questions at once. Questions without a selection are
// reported as unanswered.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.currentSession(r)
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	session.Answers.Reset()
	for i := 0; i < session.Answers.Len(); i++ {
		value := r.PostForm.Get(questionField(i))
		if value == "" {
			continue
		}
		option, err := strconv.Atoi(value)
		if err != nil {
			http.Error(w, "invalid answer for question "+strconv.Itoa(i+1), http.StatusBadRequest)
			return
		}
		if err := session.Answers.Select(i, option); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	session.Outcomes = session.Answers.Grade(session.Quiz)

	if !h.store.Save(session) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderReview(w, r, session)
}

// reviewCookie returns the browser's review cookie. A cookie that no longer
// decodes, for example after the session secret changed, is replaced by a
// fresh one.
func (h *Handler) reviewCookie(r *http.Request) *sessions.Session {
	cookie, err := h.cookies.Get(r, cookieName)
	if err != nil {
		logging.NewLogger(r.Context()).Warnf("discarding unreadable review cookie: %v", err)
	}
	return cookie
}

func (h *Handler) currentSession(r *http.Request) (*Session, bool) {
	id, ok := h.reviewCookie(r).Values[sessionIDKey].(string)
	if !ok {
		return nil, false
	}
	return h.store.Get(id)
}

func (h *Handler) renderReview(w http.ResponseWriter, r *http.Request, session *Session) {
	notesHTML, err := renderNotes(session.Notes)
	if err != nil {
		logging.NewLogger(r.Context()).Errorf("error: %v", err)
		http.Error(w, "could not render notes", http.StatusInternalServerError)
		return
	}

	page := reviewPage{
		Title:     pageTitle,
		Filename:  session.Filename,
		NotesHTML: notesHTML,
		Summary:   session.Quiz.Summary,
		Graded:    len(session.Outcomes) > 0,
	}
	for i, question := range session.Quiz.Questions {
		view := questionView{
			Number: i + 1,
			Field:  questionField(i),
			Text:   question.Question,
		}
		for j, option := range question.Options {
			view.Options = append(view.Options, optionView{
				Position: j + 1,
				Text:     option,
				Selected: session.Answers.Selected(i) == j+1,
			})
		}
		if i < len(session.Outcomes) {
			outcome := session.Outcomes[i]
			view.Outcome = &outcome
			if outcome.Status == study.OutcomeCorrect {
				page.Correct++
			}
		}
		page.Questions = append(page.Questions, view)
	}

	h.render(w, r, http.StatusOK, "review", page)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		logging.NewLogger(r.Context()).Errorf("template %s: %v", name, err)
	}
}

func questionField(i int) string {
	return "q" + strconv.Itoa(i)
}
