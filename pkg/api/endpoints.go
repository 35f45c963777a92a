package api

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/hazyhaar/electoral-roll/pkg/importer"
	"github.com/hazyhaar/electoral-roll/pkg/kit"
	"github.com/hazyhaar/electoral-roll/pkg/roll"
	"github.com/hazyhaar/electoral-roll/pkg/search"
	"github.com/hazyhaar/electoral-roll/pkg/sheet"
	"github.com/hazyhaar/electoral-roll/pkg/store"
	"github.com/hazyhaar/electoral-roll/pkg/voter"
)

// Shared request/response types used by both HTTP and MCP transports.

type facetsResponse struct {
	search.Facets
	Voters int `json:"voters"`
}

type voterResponse struct {
	Voter voter.Voter `json:"voter"`
}

type updateVoterReq struct {
	ID     string
	Fields map[string]any
}

type boothInfo struct {
	Booth      string `json:"booth"`
	Voters     int    `json:"voters"`
	Assignee   string `json:"assignee,omitempty"`
	AssignedAt int64  `json:"assignedAt,omitempty"`
}

type boothsResponse struct {
	Booths []boothInfo `json:"booths"`
}

type assignReq struct {
	Booth  string
	Member string
}

type reloadResponse struct {
	Voters int `json:"voters"`
}

type exportReq struct {
	Key    string
	Format string
	Query  search.Query
}

type exportResult struct {
	Format string
	Voters []voter.Voter
}

type uploadReq struct {
	Name string
	Body io.Reader
}

type uploadResponse struct {
	File     string `json:"file"`
	Imported int    `json:"imported"`
	Voters   int    `json:"voters"`
}

// BoothStore persists booth-to-member assignments.
type BoothStore interface {
	Assign(ctx context.Context, booth, member string) error
	Unassign(ctx context.Context, booth string) error
	Assignments(ctx context.Context) ([]store.Assignment, error)
}

// Endpoints backed by the roll and booth store.

// queryVotersEndpoint runs a query, using pageSize when the caller leaves
// PageSize at zero.
func queryVotersEndpoint(r *roll.Roll, pageSize int) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		q := *request.(*search.Query)
		if q.PageSize == 0 {
			q.PageSize = pageSize
		}
		return r.Query(q)
	}
}

func listFacetsEndpoint(r *roll.Roll) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		return facetsResponse{Facets: r.Facets(), Voters: r.Count()}, nil
	}
}

func getVoterEndpoint(r *roll.Roll) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		id := request.(string)
		v, ok := r.Get(id)
		if !ok {
			return nil, fmt.Errorf("voter %s: %w", id, store.ErrNotFound)
		}
		return voterResponse{Voter: v}, nil
	}
}

func updateVoterEndpoint(r *roll.Roll) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*updateVoterReq)
		if len(req.Fields) == 0 {
			return nil, badRequest("no fields to update")
		}
		v, err := r.Update(ctx, req.ID, req.Fields)
		if err != nil {
			return nil, err
		}
		return voterResponse{Voter: v}, nil
	}
}

func listBoothsEndpoint(r *roll.Roll, bs BoothStore) kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		assignments, err := bs.Assignments(ctx)
		if err != nil {
			return nil, err
		}
		all, _ := r.Snapshot()
		counts := make(map[string]int)
		for _, v := range all {
			if v.BoothNumber != "" {
				counts[v.BoothNumber]++
			}
		}

		byBooth := make(map[string]*boothInfo)
		for _, b := range r.Facets().BoothNumbers {
			byBooth[b] = &boothInfo{Booth: b, Voters: counts[b]}
		}
		for _, a := range assignments {
			info, ok := byBooth[a.Booth]
			if !ok {
				info = &boothInfo{Booth: a.Booth}
				byBooth[a.Booth] = info
			}
			info.Assignee = a.Member
			info.AssignedAt = a.AssignedAt
		}

		booths := make([]boothInfo, 0, len(byBooth))
		for _, info := range byBooth {
			booths = append(booths, *info)
		}
		sort.Slice(booths, func(i, j int) bool { return booths[i].Booth < booths[j].Booth })
		return boothsResponse{Booths: booths}, nil
	}
}

func assignBoothEndpoint(bs BoothStore) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*assignReq)
		if req.Member == "" {
			return nil, badRequest("member is required")
		}
		if err := bs.Assign(ctx, req.Booth, req.Member); err != nil {
			return nil, err
		}
		return map[string]string{"booth": req.Booth, "assignee": req.Member}, nil
	}
}

func unassignBoothEndpoint(bs BoothStore) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		booth := request.(string)
		if err := bs.Unassign(ctx, booth); err != nil {
			return nil, fmt.Errorf("booth %s: %w", booth, err)
		}
		return map[string]string{"booth": booth}, nil
	}
}

func reloadEndpoint(r *roll.Roll) kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		if err := r.Reload(ctx); err != nil {
			return nil, err
		}
		return reloadResponse{Voters: r.Count()}, nil
	}
}

// exportEndpoint checks the key and selects every matching voter. Nothing is
// selected on a key mismatch; the caller serializes the result.
func exportEndpoint(r *roll.Roll, exp sheet.Exporter) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*exportReq)
		if err := exp.Check(req.Key); err != nil {
			return nil, err
		}
		if req.Format != sheet.FormatXLSX && req.Format != sheet.FormatCSV {
			return nil, badRequest(fmt.Sprintf("unsupported format %q", req.Format))
		}
		voters, err := r.Select(req.Query)
		if err != nil {
			return nil, err
		}
		return exportResult{Format: req.Format, Voters: voters}, nil
	}
}

func uploadEndpoint(r *roll.Roll, im *importer.Importer) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*uploadReq)
		if !importer.Supported(req.Name) {
			return nil, badRequest(fmt.Sprintf("unsupported file type %q", req.Name))
		}
		n, err := im.ImportReader(ctx, req.Body, req.Name)
		if err != nil {
			return nil, err
		}
		return uploadResponse{File: req.Name, Imported: n, Voters: r.Count()}, nil
	}
}

// badRequest marks a client input error.
type badRequest string

func (e badRequest) Error() string { return string(e) }
