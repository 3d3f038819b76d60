package server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/planlytics/planforge/internal/compile"
	"github.com/planlytics/planforge/internal/deploy"
	"github.com/planlytics/planforge/internal/lint"
	"github.com/planlytics/planforge/internal/model"
	"github.com/planlytics/planforge/internal/review"
	"github.com/planlytics/planforge/internal/tabular"
	"github.com/planlytics/planforge/internal/validate"
)

// analysisSummary is the list/detail projection of a review record without
// the submitted payload.
type analysisSummary struct {
	ID        string        `json:"id"`
	Status    review.Status `json:"status"`
	LintScore int           `json:"lint_score"`
	Warnings  []string      `json:"warnings,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func summarize(rec *review.Record) analysisSummary {
	return analysisSummary{
		ID:        rec.ID,
		Status:    rec.Status,
		LintScore: rec.LintScore,
		Warnings:  rec.Warnings,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

// analyze runs the full local pipeline over a raw analysis payload.
func (s *Server) analyze(body []byte) (*model.Graph, []string, *lint.Report, error) {
	raw, err := model.ParseRawAnalysis(body)
	if err != nil {
		return nil, nil, nil, err
	}
	graph, compileWarnings := compile.Compile(raw, s.compile)

	var warnings []string
	for _, w := range compileWarnings {
		warnings = append(warnings, w.String())
	}
	warnings = append(warnings, validate.Validate(graph)...)

	return graph, warnings, lint.Analyze(graph), nil
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) submitAnalysis(c *fiber.Ctx) error {
	body := c.Body()
	graph, warnings, report, err := s.analyze(body)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	rec := &review.Record{
		Analysis:  append(json.RawMessage(nil), body...),
		Warnings:  warnings,
		LintScore: report.Score,
	}
	if err := s.store.Create(c.UserContext(), rec); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         rec.ID,
		"status":     rec.Status,
		"lint_score": rec.LintScore,
		"warnings":   rec.Warnings,
		"objects":    graph.TotalObjects(),
	})
}

func (s *Server) listAnalyses(c *fiber.Ctx) error {
	records, err := s.store.List(c.UserContext())
	if err != nil {
		return err
	}
	summaries := make([]analysisSummary, 0, len(records))
	for i := range records {
		summaries = append(summaries, summarize(&records[i]))
	}
	return c.JSON(fiber.Map{"analyses": summaries, "count": len(summaries)})
}

func (s *Server) getAnalysis(c *fiber.Ctx) error {
	rec, err := s.loadRecord(c)
	if err != nil {
		return err
	}
	return c.JSON(rec)
}

func (s *Server) getReport(c *fiber.Ctx) error {
	rec, err := s.loadRecord(c)
	if err != nil {
		return err
	}
	_, warnings, report, err := s.analyze(rec.Analysis)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(fiber.Map{
		"id":       rec.ID,
		"status":   rec.Status,
		"warnings": warnings,
		"report":   report,
	})
}

func (s *Server) getTables(c *fiber.Ctx) error {
	rec, err := s.loadRecord(c)
	if err != nil {
		return err
	}
	graph, _, _, err := s.analyze(rec.Analysis)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(tabular.FromGraph(graph, time.Now().UTC()))
}

func (s *Server) approveAnalysis(c *fiber.Ctx) error {
	return s.decide(c, s.store.Approve)
}

func (s *Server) rejectAnalysis(c *fiber.Ctx) error {
	return s.decide(c, s.store.Reject)
}

func (s *Server) decide(c *fiber.Ctx, fn func(ctx context.Context, id string) (*review.Record, error)) error {
	rec, err := fn(c.UserContext(), c.Params("id"))
	switch {
	case errors.Is(err, review.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "analysis not found")
	case errors.Is(err, review.ErrNotPending):
		return fiber.NewError(fiber.StatusConflict, "analysis has already been decided")
	case err != nil:
		return err
	}
	return c.JSON(summarize(rec))
}

// deployRequest is the optional body of the deploy endpoint.
type deployRequest struct {
	DryRun bool `json:"dry_run"`
	Force  bool `json:"force"`
}

func (s *Server) deployAnalysis(c *fiber.Ctx) error {
	if s.gw == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "no deployment gateway configured")
	}

	rec, err := s.loadRecord(c)
	if err != nil {
		return err
	}
	if rec.Status != review.StatusApproved {
		return fiber.NewError(fiber.StatusConflict, "analysis must be approved before deployment")
	}

	var req deployRequest
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid deploy request: "+err.Error())
		}
	}

	graph, _, _, err := s.analyze(rec.Analysis)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	report, err := deploy.New(s.gw).Deploy(c.UserContext(), graph, deploy.Options{
		DryRun: req.DryRun,
		Force:  req.Force,
	})
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":  err.Error(),
			"report": report,
		})
	}
	return c.JSON(report)
}

func (s *Server) loadRecord(c *fiber.Ctx) (*review.Record, error) {
	rec, err := s.store.Get(c.UserContext(), c.Params("id"))
	if errors.Is(err, review.ErrNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "analysis not found")
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}
