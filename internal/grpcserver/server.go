// Package grpcserver implements the MatchService gRPC server.
//
// It delegates all business logic to the lifecycle, scanner and score
// services and handles only the gRPC transport concerns: metadata
// extraction, error mapping and message shapes. Messages are JSON encoded;
// clients select the codec with grpc.CallContentSubtype("json").
package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"jobmate/match-service/internal/apperr"
	"jobmate/match-service/internal/model"
	"jobmate/match-service/internal/scoring"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "jobmate.match.v1.MatchService"

// ─── Dependencies ─────────────────────────────────────────────────────────────

type Lifecycle interface {
	Get(ctx context.Context, id int64, viewer string) (*model.Match, error)
	Act(ctx context.Context, id int64, side, action string, notes *string) (*model.Match, error)
	Favorite(ctx context.Context, id int64, side string, favorite bool) (*model.Match, error)
	List(ctx context.Context, f model.MatchFilter) ([]model.Match, error)
}

type Scanner interface {
	ScanCVAnalysis(ctx context.Context, cvAnalysisID int64) ([]model.Match, error)
	ScanJob(ctx context.Context, jobID int64) ([]model.Match, error)
}

type Scorer interface {
	Direct(ctx context.Context, candidateID, jobID int64) (scoring.Result, error)
}

// ─── Messages ─────────────────────────────────────────────────────────────────

type GetMatchRequest struct {
	MatchID int64 `json:"matchId"`
	// MarkViewed marks the match viewed by the caller's side.
	MarkViewed bool `json:"markViewed"`
}

type ActRequest struct {
	MatchID int64   `json:"matchId"`
	Action  string  `json:"action"`
	Notes   *string `json:"notes,omitempty"`
}

type FavoriteRequest struct {
	MatchID  int64 `json:"matchId"`
	Favorite bool  `json:"favorite"`
}

type ListMatchesRequest struct {
	CandidateID   int64   `json:"candidateId"`
	JobID         int64   `json:"jobId"`
	CompanyUserID int64   `json:"companyUserId"`
	Status        string  `json:"status"`
	MinScore      float64 `json:"minScore"`
	Limit         int     `json:"limit"`
}

type ListMatchesResponse struct {
	Matches []model.Match `json:"matches"`
}

type ScanRequest struct {
	ID int64 `json:"id"`
}

type ScanResponse struct {
	Created int           `json:"created"`
	Matches []model.Match `json:"matches"`
}

type ScoreRequest struct {
	CandidateID int64 `json:"candidateId"`
	JobID       int64 `json:"jobId"`
}

// ─── Server ───────────────────────────────────────────────────────────────────

// MatchServiceServer is the server API of ServiceName.
type MatchServiceServer interface {
	GetMatch(context.Context, *GetMatchRequest) (*model.Match, error)
	ListMatches(context.Context, *ListMatchesRequest) (*ListMatchesResponse, error)
	ActOnMatch(context.Context, *ActRequest) (*model.Match, error)
	FavoriteMatch(context.Context, *FavoriteRequest) (*model.Match, error)
	ScanCV(context.Context, *ScanRequest) (*ScanResponse, error)
	ScanJob(context.Context, *ScanRequest) (*ScanResponse, error)
	Score(context.Context, *ScoreRequest) (*scoring.Result, error)
}

// Server implements MatchServiceServer.
type Server struct {
	lc     Lifecycle
	scan   Scanner
	scores Scorer
}

// NewServer constructs a Server. scores may be nil.
func NewServer(lc Lifecycle, scan Scanner, scores Scorer) *Server {
	return &Server{lc: lc, scan: scan, scores: scores}
}

// Register mounts the match service and the standard health service on gs.
func Register(gs *grpc.Server, s *Server) *health.Server {
	gs.RegisterService(&ServiceDesc, s)
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return hs
}

// ─── RPC implementations ──────────────────────────────────────────────────────

// GetMatch returns one match, optionally marking it viewed by the caller.
func (s *Server) GetMatch(ctx context.Context, req *GetMatchRequest) (*model.Match, error) {
	viewer := ""
	if req.MarkViewed {
		side, err := sideFromCtx(ctx)
		if err != nil {
			return nil, err
		}
		viewer = side
	}
	m, err := s.lc.Get(ctx, req.MatchID, viewer)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return m, nil
}

// ListMatches returns matches ordered by score.
func (s *Server) ListMatches(ctx context.Context, req *ListMatchesRequest) (*ListMatchesResponse, error) {
	matches, err := s.lc.List(ctx, model.MatchFilter{
		CandidateID:   req.CandidateID,
		JobID:         req.JobID,
		CompanyUserID: req.CompanyUserID,
		Status:        model.Status(req.Status),
		MinScore:      req.MinScore,
		Limit:         req.Limit,
	})
	if err != nil {
		return nil, toGRPCError(err)
	}
	return &ListMatchesResponse{Matches: matches}, nil
}

// ActOnMatch records the caller's interest or rejection.
func (s *Server) ActOnMatch(ctx context.Context, req *ActRequest) (*model.Match, error) {
	side, err := sideFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.lc.Act(ctx, req.MatchID, side, req.Action, req.Notes)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return m, nil
}

// FavoriteMatch sets the caller's favorite flag.
func (s *Server) FavoriteMatch(ctx context.Context, req *FavoriteRequest) (*model.Match, error) {
	side, err := sideFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	m, err := s.lc.Favorite(ctx, req.MatchID, side, req.Favorite)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return m, nil
}

// ScanCV scans active jobs for a CV analysis.
func (s *Server) ScanCV(ctx context.Context, req *ScanRequest) (*ScanResponse, error) {
	created, err := s.scan.ScanCVAnalysis(ctx, req.ID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return &ScanResponse{Created: len(created), Matches: created}, nil
}

// ScanJob scans current CV analyses for a job.
func (s *Server) ScanJob(ctx context.Context, req *ScanRequest) (*ScanResponse, error) {
	created, err := s.scan.ScanJob(ctx, req.ID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return &ScanResponse{Created: len(created), Matches: created}, nil
}

// Score returns the direct score of a candidate for a job.
func (s *Server) Score(ctx context.Context, req *ScoreRequest) (*scoring.Result, error) {
	if s.scores == nil {
		return nil, status.Error(codes.Unavailable, "scoring unavailable")
	}
	res, err := s.scores.Direct(ctx, req.CandidateID, req.JobID)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return &res, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// sideFromCtx extracts the x-user-side value forwarded by the Gateway
// via gRPC metadata.
func sideFromCtx(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("x-user-side")
	if len(vals) == 0 || vals[0] == "" {
		return "", status.Error(codes.Unauthenticated, "missing x-user-side metadata")
	}
	return vals[0], nil
}

// toGRPCError maps domain errors to gRPC status errors.
func toGRPCError(err error) error {
	return status.Error(apperr.GRPCCode(err), apperr.Message(err))
}
