// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes a search session over HTTP.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/nearby/dispatch"
	"github.com/jcodagnone/nearby/permission"
	"github.com/jcodagnone/nearby/places"
	"github.com/jcodagnone/nearby/presenter"
	"github.com/jcodagnone/nearby/spatial"
)

// Server is a single search session driven by HTTP calls. Handlers hop onto
// the dispatch loop for every read or change of session state.
type Server struct {
	ctx      context.Context
	loop     *dispatch.Loop
	view     *View
	platform *Platform
	gate     *permission.Gate
	search   *presenter.SearchPresenter
	filters  *presenter.FilterPresenter
}

// NewServer wires a session around repo. loop must be started.
func NewServer(
	ctx context.Context,
	loop *dispatch.Loop,
	repo places.Repository,
	location presenter.LocationProvider,
	radius float64,
	categories []string,
) *Server {
	s := &Server{
		ctx:      ctx,
		loop:     loop,
		view:     &View{},
		platform: &Platform{},
	}

	s.gate = permission.NewGate(loop, s.platform, s.view, s.view)
	s.search = presenter.NewSearchPresenter(ctx, loop, repo, s.gate, s.view, location, radius)
	s.filters = presenter.NewFilterPresenter(s.search, categories)
	s.gate.SetStarter(s.search)

	return s
}

// Router returns the engine with every API route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/api/places", s.getPlaces)
	r.GET("/api/messages", s.getMessages)
	r.GET("/api/categories", s.getCategories)
	r.POST("/api/search", s.postSearch)
	r.POST("/api/filter", s.postFilter)
	r.GET("/api/map", s.getMap)
	r.GET("/api/permission", s.getPermission)
	r.POST("/api/permission/rationale", s.postRationale)
	r.POST("/api/permission/response", s.postPermissionResponse)

	return r
}

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

// onLoop runs fn on the dispatch loop, answering 503 when the loop is gone.
func (s *Server) onLoop(ctx *gin.Context, fn func()) bool {
	if !s.loop.Sync(fn) {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "session stopped"})

		return false
	}

	return true
}

// waitIfAsked blocks until in-flight searches are applied when the request
// carries ?wait=true.
func (s *Server) waitIfAsked(ctx *gin.Context) {
	if ctx.Query("wait") == "true" {
		s.search.Wait()
	}
}

type placesResponse struct {
	Places       []*places.Place `json:"places"`
	Attributions []string        `json:"attributions,omitempty"`
	Extent       *spatial.Extent `json:"extent"`
	Criteria     []string        `json:"criteria"`
}

func (s *Server) getPlaces(ctx *gin.Context) {
	var resp placesResponse

	if !s.onLoop(ctx, func() {
		resp.Places = s.view.places
		resp.Extent = s.search.ExtentForNearbyPlaces()
		resp.Criteria = s.search.Criteria().Tags()

		if last := s.search.LastResult(); last != nil {
			resp.Attributions = last.Attributions
		}
	}) {
		return
	}

	if resp.Places == nil {
		resp.Places = []*places.Place{}
	}

	ctx.JSON(http.StatusOK, resp)
}

func (s *Server) getMessages(ctx *gin.Context) {
	var messages []string

	if !s.onLoop(ctx, func() { messages = s.view.takeMessages() }) {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (s *Server) getCategories(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"categories": s.filters.Categories()})
}

type permissionStatus struct {
	State          string `json:"state"`
	RationaleShown bool   `json:"rationale_shown"`
	Pending        bool   `json:"pending"`
}

func (s *Server) status() permissionStatus {
	return permissionStatus{
		State:          s.gate.State().String(),
		RationaleShown: s.view.rationaleShown,
		Pending:        s.platform.Pending(),
	}
}

// transitionError maps gate errors to a response. It reports whether one was
// written.
func transitionError(ctx *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, permission.ErrInvalidTransition) {
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}

	return true
}

func (s *Server) postSearch(ctx *gin.Context) {
	var (
		err    error
		status permissionStatus
	)

	if !s.onLoop(ctx, func() {
		err = s.gate.Evaluate(s.ctx)
		status = s.status()
	}) {
		return
	}

	if transitionError(ctx, err) {
		return
	}

	s.waitIfAsked(ctx)
	ctx.JSON(http.StatusAccepted, status)
}

type filterRequest struct {
	Tags []string `json:"tags"`
	// Apply false behaves like cancelling the dialog.
	Apply *bool `json:"apply"`
}

func (s *Server) postFilter(ctx *gin.Context) {
	var req filterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	apply := req.Apply == nil || *req.Apply

	var selection []string

	if !s.onLoop(ctx, func() {
		d := s.filters.Open(places.NewFilterCriteria(req.Tags...))
		selection = d.Selection().Tags()
		d.Close(apply)
	}) {
		return
	}

	log.Printf("filter %v (applied: %t)", selection, apply)

	s.waitIfAsked(ctx)
	ctx.JSON(http.StatusAccepted, gin.H{"criteria": selection, "applied": apply})
}

type mapResponse struct {
	presenter.MapRequest
	Values map[string]string `json:"values"`
}

func (s *Server) getMap(ctx *gin.Context) {
	var req presenter.MapRequest

	if !s.onLoop(ctx, func() { req = s.search.MapRequest() }) {
		return
	}

	ctx.JSON(http.StatusOK, mapResponse{MapRequest: req, Values: req.Values()})
}

func (s *Server) getPermission(ctx *gin.Context) {
	var status permissionStatus

	if !s.onLoop(ctx, func() { status = s.status() }) {
		return
	}

	ctx.JSON(http.StatusOK, status)
}

func (s *Server) postRationale(ctx *gin.Context) {
	var (
		err    error
		status permissionStatus
	)

	if !s.onLoop(ctx, func() {
		if err = s.gate.AcknowledgeRationale(s.ctx); err == nil {
			s.view.rationaleShown = false
		}

		status = s.status()
	}) {
		return
	}

	if transitionError(ctx, err) {
		return
	}

	ctx.JSON(http.StatusAccepted, status)
}

func (s *Server) postPermissionResponse(ctx *gin.Context) {
	var resp permission.Response
	if err := ctx.ShouldBindJSON(&resp); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if err := s.platform.Answer(resp); err != nil {
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusAccepted, gin.H{"granted": resp.Granted()})
}
