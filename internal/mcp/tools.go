package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
	"github.com/emergency-assist/hospital-recommender/internal/service"
)

// ClassifySymptomsParams defines parameters for classify_symptoms tool
type ClassifySymptomsParams struct {
	Text string `json:"text" jsonschema:"free-text description of the patient's symptoms"`
}

// RecommendHospitalsParams defines parameters for recommend_hospitals tool
type RecommendHospitalsParams struct {
	Text                string   `json:"text,omitempty" jsonschema:"free-text description of the patient's symptoms"`
	Latitude            *float64 `json:"latitude,omitempty" jsonschema:"latitude of the patient in decimal degrees"`
	Longitude           *float64 `json:"longitude,omitempty" jsonschema:"longitude of the patient in decimal degrees"`
	Limit               int      `json:"limit,omitempty" jsonschema:"maximum number of hospitals to return"`
	Strategy            string   `json:"strategy,omitempty" jsonschema:"ranking strategy: proximity-first (default) or attribute-match"`
	MaxDistanceKm       *float64 `json:"max_distance_km,omitempty" jsonschema:"only consider hospitals within this distance"`
	RequiredSpecialists []string `json:"required_specialists,omitempty" jsonschema:"specialists the hospital must have on staff"`
	RequiredEquipment   []string `json:"required_equipment,omitempty" jsonschema:"equipment the hospital must have available"`
	PreferredHospitalID string   `json:"preferred_hospital_id,omitempty" jsonschema:"hospital to list first when it is reachable"`
	UserID              string   `json:"user_id,omitempty" jsonschema:"identifier used to audit the recommendation"`
}

// GetHospitalParams defines parameters for get_hospital tool
type GetHospitalParams struct {
	ID string `json:"id" jsonschema:"hospital identifier, e.g. hosp2"`
}

// registerTools adds the tools to the MCP server
func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "classify_symptoms",
		Description: "Classify a free-text symptom description into a probable condition with urgency, required specialists and equipment",
	}, s.handleClassifySymptoms)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "recommend_hospitals",
		Description: "Recommend hospitals for a symptom description, ranked by proximity or by specialist and equipment match",
	}, s.handleRecommendHospitals)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_hospital",
		Description: "Get the full record of one hospital by id",
	}, s.handleGetHospital)

	s.logger.WithField("tool_count", 3).Info("Registered MCP tools")
}

func (s *Server) handleClassifySymptoms(ctx context.Context, req *mcp.CallToolRequest, params ClassifySymptomsParams) (*mcp.CallToolResult, any, error) {
	analysis, err := s.recommender.Classify(params.Text)
	if err != nil {
		return s.toolError("classify_symptoms", err), nil, nil
	}
	return jsonResult(analysis)
}

func (s *Server) handleRecommendHospitals(ctx context.Context, req *mcp.CallToolRequest, params RecommendHospitalsParams) (*mcp.CallToolResult, any, error) {
	request, err := params.toRequest()
	if err != nil {
		return s.toolError("recommend_hospitals", err), nil, nil
	}

	resp, err := s.recommender.Recommend(ctx, request)
	if err != nil {
		return s.toolError("recommend_hospitals", err), nil, nil
	}
	return jsonResult(resp)
}

func (s *Server) handleGetHospital(ctx context.Context, req *mcp.CallToolRequest, params GetHospitalParams) (*mcp.CallToolResult, any, error) {
	provider, err := s.recommender.GetProvider(ctx, params.ID)
	if err != nil {
		return s.toolError("get_hospital", err), nil, nil
	}
	return jsonResult(provider)
}

func (p RecommendHospitalsParams) toRequest() (*service.RecommendRequest, error) {
	req := &service.RecommendRequest{
		FreeText:            p.Text,
		Limit:               p.Limit,
		Strategy:            domain.RankingStrategy(p.Strategy),
		UserID:              p.UserID,
		RequiredSpecialists: p.RequiredSpecialists,
		RequiredEquipment:   p.RequiredEquipment,
		PreferredProviderID: p.PreferredHospitalID,
	}

	switch {
	case p.Latitude != nil && p.Longitude != nil:
		req.UserLocation = &domain.GeoPoint{Lat: *p.Latitude, Lng: *p.Longitude}
	case p.Latitude != nil || p.Longitude != nil:
		return nil, domain.NewValidationError("location", "latitude and longitude must be given together", nil)
	}

	if p.MaxDistanceKm != nil {
		req.Filters = &domain.FilterOptions{MaxDistanceKm: p.MaxDistanceKm}
	}
	return req, nil
}

// toolError reports a failure to the client as a tool error result.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	message := err.Error()
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		message = fmt.Sprintf("invalid %s: %s", verr.Field, verr.Message)
	} else if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrCatalogUnavailable) {
		s.logger.WithError(err).WithField("tool", tool).Error("Tool call failed")
	}

	s.logger.WithFields(logrus.Fields{
		"tool":  tool,
		"error": message,
	}).Debug("Tool returned an error")

	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
