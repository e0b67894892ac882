package content

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"casestudy-app/internal/app/http/middleware"
	contentmodel "casestudy-app/internal/domain/content"
	"casestudy-app/internal/store"
)

type Handler struct {
	content  store.ContentStore
	profiles store.ProfileStore
	log      zerolog.Logger
}

func NewHandler(contentStore store.ContentStore, profileStore store.ProfileStore, log zerolog.Logger) *Handler {
	return &Handler{
		content:  contentStore,
		profiles: profileStore,
		log:      log.With().Str("component", "content").Logger(),
	}
}

type caseStudySummaryDTO struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Topic   string `json:"topic"`
	Summary string `json:"summary"`
	Premium bool   `json:"premium"`
}

type questionDTO struct {
	Position int    `json:"position"`
	Prompt   string `json:"prompt"`
	Concept  string `json:"concept"`
	Solution string `json:"solution"`
}

type caseStudyDTO struct {
	caseStudySummaryDTO
	Questions []questionDTO `json:"questions"`
}

// ListCaseStudies returns catalog metadata only. Question bodies are
// never included here, so the route stays public.
func (h *Handler) ListCaseStudies(c *gin.Context) {
	list, err := h.content.ListCaseStudies(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load case studies"})
		return
	}

	out := make([]caseStudySummaryDTO, 0, len(list))
	for _, cs := range list {
		out = append(out, summaryDTO(&cs))
	}
	c.JSON(http.StatusOK, gin.H{"caseStudies": out})
}

// GetCaseStudy serves the full study. Free studies go to anyone;
// premium ones require an entitled subscriber.
func (h *Handler) GetCaseStudy(c *gin.Context) {
	cs, err := h.content.CaseStudyBySlug(c.Request.Context(), c.Param("slug"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Case study not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load case study"})
		return
	}

	if cs.Premium && !middleware.Entitled(c, h.profiles) {
		return
	}

	dto := caseStudyDTO{caseStudySummaryDTO: summaryDTO(cs)}
	for _, q := range cs.Questions {
		dto.Questions = append(dto.Questions, questionDTO{
			Position: q.Position,
			Prompt:   q.Prompt,
			Concept:  q.Concept,
			Solution: q.Solution,
		})
	}
	c.JSON(http.StatusOK, dto)
}

type createCaseStudyRequest struct {
	Slug    string `json:"slug" binding:"required"`
	Title   string `json:"title" binding:"required"`
	Topic   string `json:"topic"`
	Summary string `json:"summary"`
	Premium *bool  `json:"premium"`
}

// CreateCaseStudy is admin only, enforced by route middleware.
func (h *Handler) CreateCaseStudy(c *gin.Context) {
	var req createCaseStudyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slug and title are required"})
		return
	}

	premium := true
	if req.Premium != nil {
		premium = *req.Premium
	}
	cs := &contentmodel.CaseStudy{
		ID:      uuid.NewString(),
		Slug:    req.Slug,
		Title:   req.Title,
		Topic:   req.Topic,
		Summary: req.Summary,
		Premium: premium,
	}
	if err := h.content.CreateCaseStudy(c.Request.Context(), cs); err != nil {
		h.log.Error().Err(err).Str("slug", req.Slug).Msg("create case study failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create case study"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": cs.ID, "slug": cs.Slug})
}

type addQuestionRequest struct {
	Position int    `json:"position"`
	Prompt   string `json:"prompt" binding:"required"`
	Concept  string `json:"concept"`
	Solution string `json:"solution"`
}

func (h *Handler) AddQuestion(c *gin.Context) {
	cs, err := h.content.CaseStudyBySlug(c.Request.Context(), c.Param("slug"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Case study not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load case study"})
		return
	}

	var req addQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	q := &contentmodel.Question{
		ID:          uuid.NewString(),
		CaseStudyID: cs.ID,
		Position:    req.Position,
		Prompt:      req.Prompt,
		Concept:     req.Concept,
		Solution:    req.Solution,
	}
	if err := h.content.AddQuestion(c.Request.Context(), q); err != nil {
		h.log.Error().Err(err).Str("slug", cs.Slug).Msg("add question failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add question"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": q.ID})
}

func summaryDTO(cs *contentmodel.CaseStudy) caseStudySummaryDTO {
	return caseStudySummaryDTO{
		Slug:    cs.Slug,
		Title:   cs.Title,
		Topic:   cs.Topic,
		Summary: cs.Summary,
		Premium: cs.Premium,
	}
}
