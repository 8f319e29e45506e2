// Package api serves stored evaluation runs over HTTP.
package api

import (
	"bytes"
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/scenebench/internal/apeval"
	"github.com/banshee-data/scenebench/internal/confusion"
	"github.com/banshee-data/scenebench/internal/db"
	"github.com/banshee-data/scenebench/internal/httputil"
	"github.com/banshee-data/scenebench/internal/monitoring"
	"github.com/banshee-data/scenebench/internal/report"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// RunSource is the read side of the run store.
type RunSource interface {
	Get(ctx context.Context, runID string) (*db.Run, error)
	List(ctx context.Context, limit int) ([]*db.Run, error)
	ListClassResults(ctx context.Context, runID string) ([]db.ClassResult, error)
	ListFailures(ctx context.Context, runID string) ([]db.FailureRecord, error)
}

type Server struct {
	runs RunSource
}

func NewServer(runs RunSource) *Server {
	return &Server{runs: runs}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the routes mounted on mux, or a new mux when nil.
func (s *Server) ServeMux(mux *http.ServeMux) *http.ServeMux {
	if mux == nil {
		mux = http.NewServeMux()
	}
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.showRun)
	mux.HandleFunc("GET /api/runs/{id}/chart", s.runChart)
	return mux
}

type runJSON struct {
	RunID        string         `json:"run_id"`
	Task         string         `json:"task"`
	Benchmark    string         `json:"benchmark"`
	MeanAP       httputil.Float `json:"mean_ap"`
	AP50         httputil.Float `json:"ap50"`
	AP25         httputil.Float `json:"ap25"`
	MeanIoU      httputil.Float `json:"mean_iou"`
	SceneCount   int            `json:"scene_count"`
	FailureCount int            `json:"failure_count"`
	CreatedAt    time.Time      `json:"created_at"`
}

type classJSON struct {
	Label       string         `json:"label"`
	LabelID     int            `json:"label_id"`
	AP          httputil.Float `json:"ap"`
	AP50        httputil.Float `json:"ap50"`
	AP25        httputil.Float `json:"ap25"`
	IoU         httputil.Float `json:"iou"`
	TP          int64          `json:"tp"`
	Denominator int64          `json:"denominator"`
}

type runDetail struct {
	runJSON
	Classes  []classJSON        `json:"classes"`
	Failures []db.FailureRecord `json:"failures"`
}

func toRunJSON(r *db.Run) runJSON {
	return runJSON{
		RunID:        r.RunID,
		Task:         r.Task,
		Benchmark:    r.Benchmark,
		MeanAP:       httputil.Float(r.MeanAP),
		AP50:         httputil.Float(r.AP50),
		AP25:         httputil.Float(r.AP25),
		MeanIoU:      httputil.Float(r.MeanIoU),
		SceneCount:   r.SceneCount,
		FailureCount: r.FailureCount,
		CreatedAt:    time.Unix(0, r.CreatedAt).UTC(),
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}
	runs, err := s.runs.List(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, "Failed to list runs")
		return
	}
	out := make([]runJSON, len(runs))
	for i, run := range runs {
		out[i] = toRunJSON(run)
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) showRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := s.runs.Get(r.Context(), id)
	if err != nil {
		httputil.NotFound(w, err.Error())
		return
	}
	classes, err := s.runs.ListClassResults(r.Context(), id)
	if err != nil {
		httputil.InternalServerError(w, "Failed to list class results")
		return
	}
	failures, err := s.runs.ListFailures(r.Context(), id)
	if err != nil {
		httputil.InternalServerError(w, "Failed to list failures")
		return
	}

	detail := runDetail{runJSON: toRunJSON(run), Classes: make([]classJSON, len(classes)), Failures: failures}
	for i, c := range classes {
		detail.Classes[i] = classJSON{
			Label: c.Label, LabelID: c.LabelID,
			AP: httputil.Float(c.AP), AP50: httputil.Float(c.AP50), AP25: httputil.Float(c.AP25),
			IoU: httputil.Float(c.IoU), TP: c.TP, Denominator: c.Denominator,
		}
	}
	if detail.Failures == nil {
		detail.Failures = []db.FailureRecord{}
	}
	httputil.WriteJSONOK(w, detail)
}

func (s *Server) runChart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := s.runs.Get(r.Context(), id)
	if err != nil {
		httputil.NotFound(w, err.Error())
		return
	}
	classes, err := s.runs.ListClassResults(r.Context(), id)
	if err != nil {
		httputil.InternalServerError(w, "Failed to list class results")
		return
	}

	var buf bytes.Buffer
	title := run.Benchmark + " " + run.RunID
	if run.Task == "instance" {
		err = report.WritePage(&buf, title, report.InstanceChart("Average precision", instanceSummary(run, classes)))
	} else {
		err = report.WritePage(&buf, title, report.ScoreChart("Class IoU", "IoU", classScores(classes)))
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func instanceSummary(run *db.Run, classes []db.ClassResult) apeval.Summary {
	s := apeval.Summary{
		MeanAP: run.MeanAP,
		AP50:   run.AP50,
		AP25:   run.AP25,
		Has25:  !math.IsNaN(run.AP25),
	}
	for _, c := range classes {
		s.Classes = append(s.Classes, apeval.ClassSummary{Label: c.Label, ID: c.LabelID, AP: c.AP, AP50: c.AP50, AP25: c.AP25})
	}
	return s
}

func classScores(classes []db.ClassResult) []confusion.ClassScore {
	out := make([]confusion.ClassScore, len(classes))
	for i, c := range classes {
		out[i] = confusion.ClassScore{Label: c.Label, ID: c.LabelID, Value: c.IoU, TP: c.TP, Denom: c.Denominator}
	}
	return out
}
