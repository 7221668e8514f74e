package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/abdulachik/storyteller/internal/catalog"
	"github.com/abdulachik/storyteller/internal/story"
)

// generateRequest is the body of POST /api/stories/generate. With Random set
// the seed is drawn from the catalog and the other fields are ignored.
type generateRequest struct {
	Quote       string `json:"quote"`
	Book        string `json:"book"`
	Inspiration string `json:"inspiration"`
	Random      bool   `json:"random"`
}

// generateResponse adds the catalog draw to a random generation.
type generateResponse struct {
	story.Result
	Seed *catalog.Seed `json:"seed,omitempty"`
}

func (s *Server) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, story.Result{StoryParts: []string{story.MsgInvalidInput}})
		return
	}

	var resp generateResponse
	if req.Random {
		seed, res := s.stories.Random(c.Request.Context())
		resp = generateResponse{Result: res, Seed: &seed}
	} else {
		resp.Result = s.stories.Generate(c.Request.Context(), story.Request{
			Quote:       req.Quote,
			Book:        req.Book,
			Inspiration: req.Inspiration,
		})
	}

	if resp.RunID != "" {
		c.Header(runIDHeader, resp.RunID)
	}
	if resp.Err != nil {
		_ = c.Error(resp.Err)
	}
	c.JSON(generateStatus(resp.Result), resp)
}

// generateStatus maps a generation result onto an HTTP status. The body is
// the same result either way.
func generateStatus(r story.Result) int {
	switch {
	case errors.Is(r.Err, story.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(r.Err, story.ErrMissingConfig):
		return http.StatusServiceUnavailable
	case errors.Is(r.Err, story.ErrGenerationFailed):
		return http.StatusBadGateway
	case !r.Success:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

func (s *Server) listStories(c *gin.Context) {
	res := s.stories.List(c.Request.Context())
	if !res.Success {
		c.JSON(http.StatusInternalServerError, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) getStory(c *gin.Context) {
	id, ok := storyID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, story.GetResult{Message: story.MsgInvalidInput})
		return
	}

	res := s.stories.Get(c.Request.Context(), id)
	c.JSON(lookupStatus(res.Success, res.Message), res)
}

func (s *Server) storyPages(c *gin.Context) {
	id, ok := storyID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, story.PagesResult{Pages: []string{}, Message: story.MsgInvalidInput})
		return
	}

	res := s.stories.Pages(c.Request.Context(), id)
	c.JSON(lookupStatus(res.Success, res.Message), res)
}

func (s *Server) catalog(c *gin.Context) {
	c.JSON(http.StatusOK, s.stories.Catalog())
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) readyz(c *gin.Context) {
	s.health.Refresh(c.Request.Context())

	status := http.StatusOK
	state := "ready"
	if !s.health.Healthy() {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":     state,
		"components": s.health.All(),
	})
}

func (s *Server) readerPage(c *gin.Context) {
	c.HTML(http.StatusOK, "reader.html", gin.H{
		"Fallback": fallbackPage,
		"Pages":    fallbackPages,
	})
}

func (s *Server) galleryPage(c *gin.Context) {
	res := s.stories.List(c.Request.Context())
	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
	}
	c.HTML(status, "gallery.html", gin.H{
		"Stories": res.Stories,
		"Message": res.Message,
	})
}

// fallbackPage fills every screen of the reader when generation fails.
const (
	fallbackPage  = "Истории не будет, Герман принял ислам."
	fallbackPages = 10
)

func storyID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func lookupStatus(success bool, message string) int {
	switch {
	case success:
		return http.StatusOK
	case message == story.MsgStoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
