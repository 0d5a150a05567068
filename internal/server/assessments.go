package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/gokatarajesh/learning-platform/internal/assessment"
	"github.com/gokatarajesh/learning-platform/internal/auth"
	"github.com/gokatarajesh/learning-platform/internal/content"
	"github.com/gokatarajesh/learning-platform/internal/export"
	"github.com/gokatarajesh/learning-platform/internal/jobs"
	"github.com/gokatarajesh/learning-platform/internal/logging"
	httperrors "github.com/gokatarajesh/learning-platform/pkg/http/errors"
)

const maxBodyBytes = 64 << 10

type questionService interface {
	Generate(ctx context.Context, req assessment.GenerateRequest) (assessment.Result, error)
}

type jobService interface {
	Submit(ctx context.Context, req assessment.GenerateRequest, subject string) (jobs.Job, error)
	Get(ctx context.Context, id uuid.UUID) (jobs.Job, error)
}

const generateBodySchema = `{
	"type": "object",
	"properties": {
		"question_count": {"type": "integer", "minimum": 1},
		"types": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string", "enum": ["multiple_choice", "true_false"]}
		},
		"difficulty": {"type": "string", "maxLength": 32}
	},
	"required": ["question_count"],
	"additionalProperties": false
}`

var generateSchema = mustSchema(generateBodySchema)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return s
}

type generateBody struct {
	QuestionCount int                       `json:"question_count"`
	Types         []assessment.QuestionType `json:"types"`
	Difficulty    string                    `json:"difficulty"`
}

type questionsResponse struct {
	Assessment content.Ref           `json:"assessment"`
	SourceTier assessment.Tier       `json:"sourceTier"`
	Attempts   int                   `json:"attempts"`
	Questions  []assessment.Question `json:"questions"`
}

type assessmentHandlers struct {
	questions questionService
	jobs      jobService
}

func (h *assessmentHandlers) generateQuestions(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeGenerateRequest(w, r)
	if !ok {
		return
	}
	res, err := h.questions.Generate(r.Context(), req)
	if err != nil {
		log := logging.FromContext(r.Context())
		log.Warn().Err(err).Str("assessment", req.Ref.String()).Msg("question generation failed")
		respondGenerationError(w, err)
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, questionsResponse{
		Assessment: req.Ref,
		SourceTier: res.SourceTier,
		Attempts:   res.Attempts,
		Questions:  res.Questions,
	})
}

func (h *assessmentHandlers) submitJob(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeGenerateRequest(w, r)
	if !ok {
		return
	}
	job, err := h.jobs.Submit(r.Context(), req, auth.Subject(r.Context()))
	if err != nil {
		if errors.Is(err, assessment.ErrInvalidRequest) {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, err.Error())
			return
		}
		log := logging.FromContext(r.Context())
		log.Error().Err(err).Msg("enqueue job failed")
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeEnqueueFailed, "Could not queue the generation job")
		return
	}
	w.Header().Set("Location", "/v1/jobs/"+job.ID.String())
	httperrors.RespondJSON(w, http.StatusAccepted, job)
}

func (h *assessmentHandlers) getJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, job)
}

func (h *assessmentHandlers) exportJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	if job.Status != jobs.StatusSucceeded || job.Result == nil {
		httperrors.RespondErrorWithDetails(w, http.StatusConflict, httperrors.ErrCodeJobNotReady,
			"Job has no questions to export", map[string]any{"status": job.Status})
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, job.Request.Ref, *job.Result); err != nil {
		log := logging.FromContext(r.Context())
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("export failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeExportFailed, "Could not build spreadsheet")
		return
	}
	filename := fmt.Sprintf("%s-%s-%s.xlsx", job.Request.Ref.Kind, job.Request.Ref.ID, job.ID)
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// loadJob resolves the {id} path value. Jobs owned by another subject read as missing.
func (h *assessmentHandlers) loadJob(w http.ResponseWriter, r *http.Request) (jobs.Job, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidJobID, "Job id must be a UUID")
		return jobs.Job{}, false
	}
	job, err := h.jobs.Get(r.Context(), id)
	if err == nil && !ownedBy(job, auth.Subject(r.Context())) {
		err = jobs.ErrJobNotFound
	}
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeJobNotFound, "Job not found")
			return jobs.Job{}, false
		}
		log := logging.FromContext(r.Context())
		log.Error().Err(err).Str("job_id", id.String()).Msg("load job failed")
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, "Job store unavailable")
		return jobs.Job{}, false
	}
	return job, true
}

func ownedBy(job jobs.Job, subject string) bool {
	return job.Subject == "" || job.Subject == subject
}

// decodeGenerateRequest validates the body against generateBodySchema and
// combines it with the {kind}/{id} path values.
func decodeGenerateRequest(w http.ResponseWriter, r *http.Request) (assessment.GenerateRequest, bool) {
	kind, err := content.ParseKind(r.PathValue("kind"))
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidKind, err.Error(), "kind")
		return assessment.GenerateRequest{}, false
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Could not read request body")
		return assessment.GenerateRequest{}, false
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}

	result, err := generateSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Request body is not valid JSON")
		return assessment.GenerateRequest{}, false
	}
	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			messages = append(messages, e.String())
		}
		httperrors.RespondErrorWithDetails(w, http.StatusBadRequest, httperrors.ErrCodeValidationFailed,
			"Request body failed validation", map[string]any{"errors": messages})
		return assessment.GenerateRequest{}, false
	}

	var body generateBody
	if err := json.Unmarshal(raw, &body); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Request body is not valid JSON")
		return assessment.GenerateRequest{}, false
	}
	types := body.Types
	if len(types) == 0 {
		types = []assessment.QuestionType{assessment.TypeMultipleChoice, assessment.TypeTrueFalse}
	}
	return assessment.GenerateRequest{
		Ref:           content.Ref{Kind: kind, ID: strings.TrimSpace(r.PathValue("id"))},
		QuestionCount: body.QuestionCount,
		Types:         types,
		Difficulty:    body.Difficulty,
	}, true
}

func respondGenerationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assessment.ErrInvalidRequest):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, assessment.ErrContentUnavailable):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeContentUnavailable, "Course content is unavailable")
	case errors.Is(err, assessment.ErrServiceUnavailable):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, "Question generator is unavailable, try again later")
	case errors.Is(err, assessment.ErrUpstream):
		httperrors.RespondBadGateway(w, httperrors.ErrCodeUpstreamError, "Question generator rejected the request")
	case errors.Is(err, assessment.ErrNoParseableOutput):
		httperrors.RespondUnprocessable(w, httperrors.ErrCodeNoParseableOutput, "Generator returned no usable questions")
	default:
		httperrors.RespondInternalError(w, "Internal server error")
	}
}
