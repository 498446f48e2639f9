package api

import (
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/cpduel/cpduel/internal/auth"
	"github.com/cpduel/cpduel/internal/catalog"
	"github.com/cpduel/cpduel/internal/database"
	"github.com/cpduel/cpduel/internal/invite"
	"github.com/cpduel/cpduel/internal/match"
	"github.com/cpduel/cpduel/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type createMatchRequest struct {
	Handles           []string `json:"handles" binding:"required"`
	ProblemCount      int      `json:"problemCount"`
	Tags              []string `json:"tags"`
	MinRating         int      `json:"minRating"`
	MaxRating         int      `json:"maxRating"`
	ExcludeSolved     bool     `json:"excludeSolved"`
	DurationMinutes   int      `json:"durationMinutes" binding:"required"`
	StartDelaySeconds int      `json:"startDelaySeconds"`
	FinalLap          bool     `json:"finalLap"`
	Mystery           bool     `json:"mystery"`
}

type createMatchResponse struct {
	Config       match.Config `json:"config"`
	InviteCode   string       `json:"inviteCode"`
	CreatorToken string       `json:"creatorToken"`
}

func (h *Handler) createMatch(c *gin.Context) {
	var req createMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	if req.ProblemCount <= 0 {
		req.ProblemCount = 3
	}

	// Resolve ratings; a handle the judge does not know fails the whole
	// request, players must exist before the match starts.
	infos, err := h.judge.UserInfos(c.Request.Context(), req.Handles)
	if err != nil {
		util.Error(c, http.StatusBadGateway, err)
		return
	}
	players := make([]match.Player, len(infos))
	for i, info := range infos {
		players[i] = match.Player{Handle: info.Handle, Rating: info.Rating}
	}

	pool, err := h.catalog.Problems(c.Request.Context(), catalog.Filter{
		Tags:      req.Tags,
		MinRating: req.MinRating,
		MaxRating: req.MaxRating,
	})
	if err != nil {
		util.Error(c, http.StatusBadGateway, err)
		return
	}
	if req.ExcludeSolved {
		pool = h.catalog.ExcludeSolved(c.Request.Context(), pool, req.Handles)
	}
	if len(pool) < req.ProblemCount {
		util.Error(c, http.StatusUnprocessableEntity, "not enough problems match the filters")
		return
	}

	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	problems := make([]match.Problem, req.ProblemCount)
	for i, p := range pool[:req.ProblemCount] {
		problems[i] = match.Problem{ContestID: p.ContestID, Index: p.Index, Name: p.Name, Rating: p.Rating}
	}

	mysteryIndex := -1
	if req.Mystery {
		mysteryIndex = rand.Intn(len(problems))
	}

	start := time.Now().Add(time.Duration(req.StartDelaySeconds) * time.Second)
	cfg := match.Config{
		MatchID:             uuid.New().String(),
		Players:             players,
		Problems:            problems,
		StartTime:           start,
		EndTime:             start.Add(time.Duration(req.DurationMinutes) * time.Minute),
		FinalLapEnabled:     req.FinalLap,
		MysteryProblemIndex: mysteryIndex,
	}

	code, err := invite.Encode(cfg)
	if err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	token, err := auth.GenerateCreatorToken(cfg.MatchID, h.cfg.Auth.JWT.Secret, h.cfg.Auth.JWT.ExpireHours)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, err)
		return
	}
	if err := h.arena.StartMatch(cfg); err != nil {
		if errors.Is(err, match.ErrInvalidConfig) {
			util.Error(c, http.StatusBadRequest, err)
		} else {
			util.Error(c, http.StatusInternalServerError, err)
		}
		return
	}

	util.Success(c, createMatchResponse{
		Config:       cfg,
		InviteCode:   code,
		CreatorToken: token,
	}, "match created")
}

type joinMatchRequest struct {
	InviteCode string `json:"inviteCode" binding:"required"`
}

func (h *Handler) joinMatch(c *gin.Context) {
	var req joinMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}

	cfg, err := invite.Decode(req.InviteCode)
	if err != nil {
		util.Error(c, http.StatusBadRequest, err)
		return
	}
	util.Success(c, cfg, "invite decoded")
}

type matchState struct {
	Config   match.Config                        `json:"config"`
	Phase    match.Phase                         `json:"phase"`
	FinalLap bool                                `json:"finalLap"`
	Scores   map[string]int                      `json:"scores"`
	Solves   map[string]match.SolveRecord        `json:"solves"`
	Statuses map[string]map[string]match.Verdict `json:"statuses"`
}

func (h *Handler) getMatch(c *gin.Context) {
	matchID := c.Param("id")
	engine, ok := h.arena.Get(matchID)
	if !ok {
		// Fall back to the database for matches no longer in memory.
		row, err := database.GetMatch(h.db, matchID)
		if err != nil {
			util.Error(c, http.StatusNotFound, "match not found")
			return
		}
		util.Success(c, gin.H{"config": row.Config, "status": row.Status}, "")
		return
	}

	util.Success(c, matchState{
		Config:   engine.Config(),
		Phase:    engine.Phase(),
		FinalLap: engine.FinalLap(),
		Scores:   engine.Scores(),
		Solves:   engine.Solves(),
		Statuses: engine.Statuses(),
	}, "")
}

func (h *Handler) getMatchResults(c *gin.Context) {
	matchID := c.Param("id")

	if engine, ok := h.arena.Get(matchID); ok {
		if snapshot, ended := engine.Results(); ended {
			util.Success(c, snapshot, "")
			return
		}
		util.Error(c, http.StatusNotFound, "match has not ended yet")
		return
	}

	result, err := database.GetResult(h.db, matchID)
	if err != nil {
		util.Error(c, http.StatusNotFound, "results not found")
		return
	}
	util.Success(c, result.Snapshot, "")
}

func (h *Handler) abandonMatch(c *gin.Context) {
	if err := h.arena.Abandon(c.Param("id")); err != nil {
		util.Error(c, http.StatusNotFound, err)
		return
	}
	util.Success(c, nil, "match abandoned")
}
