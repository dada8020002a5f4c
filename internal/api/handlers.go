package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/itchyny/gojq"

	"github.com/delta10/layer-catalog/internal/auth"
	"github.com/delta10/layer-catalog/internal/catalog"
	"github.com/delta10/layer-catalog/internal/config"
	"github.com/delta10/layer-catalog/internal/logs"
	"github.com/delta10/layer-catalog/internal/telemetry"
	"github.com/delta10/layer-catalog/internal/utils"
	"github.com/delta10/layer-catalog/internal/wms"
)

type serviceSummary struct {
	Slug string `json:"slug"`
	URL  string `json:"url"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status": "ok"}`))
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	slugs := make([]string, 0, len(s.config.Services))
	for slug := range s.config.Services {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	summaries := make([]serviceSummary, 0, len(slugs))
	for _, slug := range slugs {
		summaries = append(summaries, serviceSummary{
			Slug: slug,
			URL:  s.config.Services[slug].URL,
		})
	}

	response, err := json.MarshalIndent(summaries, "", "    ")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not marshal json")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(response)
}

func (s *Server) handleLayers(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	service, ok := s.config.Services[slug]
	if !ok {
		writeError(w, http.StatusNotFound, "could not find service with this slug: "+slug)
		return
	}

	opts, err := s.buildOptions(r, service)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := s.capabilitiesDocument(r.Context(), slug, service)
	if err != nil {
		s.logger.Error().Err(err).Str("service", slug).Msg("could not fetch capabilities document")
		writeError(w, http.StatusBadGateway, "could not fetch capabilities from upstream service")
		return
	}

	capabilities, err := wms.ParseCapabilities(doc)
	if err != nil {
		s.logger.Error().Err(err).Str("service", slug).Msg("could not parse capabilities document")
		writeError(w, http.StatusBadGateway, "could not parse capabilities document")
		return
	}

	node, err := catalog.Classify(capabilities)
	if err != nil {
		s.logger.Error().Err(err).Str("service", slug).Msg("could not classify capability tree")
		writeError(w, http.StatusBadGateway, "could not classify capability tree")
		return
	}

	leaves, err := catalog.Flatten(node)
	if err != nil {
		s.logger.Error().Err(err).Str("service", slug).Msg("could not flatten capability tree")
		writeError(w, http.StatusBadGateway, "could not flatten capability tree")
		return
	}

	records, err := catalog.BuildRecords(leaves, catalog.ServiceEndpoint(capabilities), opts)
	if err != nil {
		s.logger.Error().Err(err).Str("service", slug).Msg("could not build layer records")
		writeError(w, http.StatusBadGateway, "could not build layer records")
		return
	}

	s.writeAccessLog(r, slug, service, len(records))

	if service.Filter != "" {
		s.writeFilteredRecords(w, service.Filter, records)
		return
	}

	response, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not marshal json")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(response)
}

// buildOptions combines the configured record options with the limit and
// sorted query parameters of the request.
func (s *Server) buildOptions(r *http.Request, service config.Service) (catalog.BuildOptions, error) {
	opts := catalog.DefaultBuildOptions()
	opts.Limit = s.config.InstantLimit

	if service.ExcludedLayers != nil {
		opts.Excluded = service.ExcludedLayers
	}

	query := r.URL.Query()
	if rawLimit := query.Get("limit"); rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil {
			return opts, errors.New("could not parse limit parameter")
		}
		opts.Limit = limit
	}

	if rawSorted := query.Get("sorted"); rawSorted != "" {
		sorted, err := strconv.ParseBool(rawSorted)
		if err != nil {
			return opts, errors.New("could not parse sorted parameter")
		}
		opts.Sorted = sorted
	}

	return opts, nil
}

// capabilitiesDocument returns the service's capability document, served
// from cache when possible.
func (s *Server) capabilitiesDocument(ctx context.Context, slug string, service config.Service) ([]byte, error) {
	if doc, ok := s.cache.GetDocument(ctx, slug); ok {
		telemetry.UpstreamFetchesTotal.WithLabelValues(slug, telemetry.OutcomeCacheHit).Inc()
		return doc, nil
	}

	doc, err := s.fetcher.FetchCapabilities(ctx, service)
	if err != nil {
		telemetry.UpstreamFetchesTotal.WithLabelValues(slug, telemetry.OutcomeError).Inc()
		return nil, err
	}

	telemetry.UpstreamFetchesTotal.WithLabelValues(slug, telemetry.OutcomeFetched).Inc()

	if err := s.cache.SetDocument(ctx, slug, doc); err != nil {
		s.logger.Warn().Err(err).Str("service", slug).Msg("could not cache capabilities document")
	}

	return doc, nil
}

// writeFilteredRecords runs the configured jq program over the records and
// writes every value it emits.
func (s *Server) writeFilteredRecords(w http.ResponseWriter, filter string, records []catalog.Record) {
	query, err := gojq.Parse(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not parse filter")
		return
	}

	marshalled, err := json.Marshal(records)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not marshal json")
		return
	}

	var result interface{}
	if err := json.Unmarshal(marshalled, &result); err != nil {
		writeError(w, http.StatusInternalServerError, "could not unmarshal layer records")
		return
	}

	iter := query.Run(result)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}

		if _, ok := v.(error); ok {
			continue
		}

		response, err := json.MarshalIndent(v, "", "    ")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not marshal json")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(response)
	}
}

// writeAccessLog pushes one entry to the service's log backend, when one
// is configured.
func (s *Server) writeAccessLog(r *http.Request, slug string, service config.Service, recordCount int) {
	if service.LogBackend == "" {
		return
	}

	backendConfig, ok := s.config.LogBackends[service.LogBackend]
	if !ok {
		s.logger.Warn().Str("logBackend", service.LogBackend).Msg("could not find log backend associated with this service")
		return
	}

	labels := map[string]string{
		"source": slug,
	}
	line := map[string]string{
		"path":       r.URL.Path,
		"ip":         utils.ReadUserIP(r),
		"user_agent": r.Header.Get("User-Agent"),
		"records":    strconv.Itoa(recordCount),
	}
	if claims, ok := auth.FromContext(r.Context()); ok {
		line["subject"] = claims.Subject
	}

	backend := logs.NewLogBackend(backendConfig)
	go func() {
		if err := backend.WriteLog(labels, line); err != nil {
			s.logger.Warn().Err(err).Str("service", slug).Msg("could not write access log")
		}
	}()
}
