package app

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/calehh/democracy-app/democracy"
	"github.com/calehh/democracy-app/state"
	"github.com/calehh/democracy-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

const (
	QueryCodeOK       uint32 = 0
	QueryCodeFailed   uint32 = 1
	QueryCodeNotFound uint32 = 404
)

func (app *DemocracyApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = QueryCodeNotFound
		return
	}
	res, err = q.Query(ctx, req)
	return
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

func (app *DemocracyApp) registerQuerier() {
	app.queriers["/accounts/"] = NewAccountQuerier(app.db, app.logger)

	view := func(fn viewFunc) Querier { return NewStateQuerier(app.db, app.logger, fn) }
	app.queriers["/proposals/"] = view(app.queryProposal)
	app.queriers["/tallies/"] = view(queryTally)
	app.queriers["/electorate/"] = view(app.queryElectorate)
	app.queriers["/enactment/"] = view(queryEnactmentQueue)
	app.queriers["/communities/"] = view(queryCommunities)
	app.queriers["/reputations/"] = view(queryReputation)
	app.queriers["/scheduler/"] = view(queryScheduler)
	app.queriers["/params/"] = view(queryParams)
	app.queriers["/council/"] = view(queryCouncil)
}

type AccountQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewAccountQuerier(db *state.StateDB, logger cmtlog.Logger) (q *AccountQuerier) {
	q = &AccountQuerier{
		db:     db,
		logger: logger,
	}
	return
}

// Query looks an account up by its 20 byte address or by its big endian
// index.
func (q *AccountQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	var a *state.Account
	var height uint64
	if len(req.Data) == 20 {
		a, height, _ = q.db.GetAccountByAddress(state.AccountIDFromAddress(req.Data))
	} else if len(req.Data) <= 8 {
		var idx uint64
		for _, v := range req.Data {
			idx <<= 8
			idx |= uint64(v)
		}
		a, height, _ = q.db.GetAccountByIndex(idx)
	}
	if a != nil {
		res.Value, _ = a.MarshalJSON()
		res.Height = int64(height)
	} else {
		res.Code = QueryCodeFailed
	}
	return
}

type viewFunc func(st *state.State, data []byte) (any, error)

// StateQuerier answers a query from a snapshot of the committed state and
// returns the result as JSON.
type StateQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
	fn     viewFunc
}

func NewStateQuerier(db *state.StateDB, logger cmtlog.Logger, fn viewFunc) *StateQuerier {
	return &StateQuerier{
		db:     db,
		logger: logger,
		fn:     fn,
	}
}

func (q *StateQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	var value any
	height, err := q.db.View(func(st *state.State) (err error) {
		value, err = q.fn(st, req.Data)
		return
	})
	res.Height = int64(height)
	if err != nil {
		res.Code = QueryCodeFailed
		if errors.Is(err, state.ErrNotFound) || errors.Is(err, democracy.ErrInexistentProposal) {
			res.Code = QueryCodeNotFound
		}
		res.Log = err.Error()
		return res, nil
	}
	res.Value, err = json.Marshal(value)
	if err != nil {
		q.logger.Error("marshal query result fail", "path", req.Path, "err", err)
		res.Code = QueryCodeFailed
		res.Log = err.Error()
	}
	return res, nil
}

func parseProposalID(data []byte) (types.ProposalID, error) {
	return strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
}

type ProposalInfo struct {
	ID       types.ProposalID `json:"id"`
	Proposal *types.Proposal  `json:"proposal"`
	Tally    types.Tally      `json:"tally"`
}

func (app *DemocracyApp) queryProposal(st *state.State, data []byte) (any, error) {
	if len(data) == 0 {
		count, err := st.ProposalCount()
		return map[string]uint64{"count": count}, err
	}
	id, err := parseProposalID(data)
	if err != nil {
		return nil, err
	}
	p, err := st.Proposal(id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, democracy.ErrInexistentProposal
	}
	tally, _, err := st.Tally(id)
	if err != nil {
		return nil, err
	}
	return ProposalInfo{ID: id, Proposal: p, Tally: tally}, nil
}

func queryTally(st *state.State, data []byte) (any, error) {
	id, err := parseProposalID(data)
	if err != nil {
		return nil, err
	}
	tally, found, err := st.Tally(id)
	if err == nil && !found {
		err = democracy.ErrInexistentProposal
	}
	return tally, err
}

type ElectorateInfo struct {
	Electorate uint64      `json:"electorate"`
	Tally      types.Tally `json:"tally"`
	Passing    bool        `json:"passing"`
}

func (app *DemocracyApp) queryElectorate(st *state.State, data []byte) (any, error) {
	id, err := parseProposalID(data)
	if err != nil {
		return nil, err
	}
	electorate, err := app.engine.Electorate(st, id)
	if err != nil {
		return nil, err
	}
	tally, _, err := st.Tally(id)
	if err != nil {
		return nil, err
	}
	passing, err := democracy.IsPassing(tally, electorate, app.engine.Params().MinTurnout)
	if err != nil {
		return nil, err
	}
	return ElectorateInfo{Electorate: electorate, Tally: tally, Passing: passing}, nil
}

func queryEnactmentQueue(st *state.State, _ []byte) (any, error) {
	entries, err := st.EnactmentQueue()
	if entries == nil {
		entries = []types.EnactmentEntry{}
	}
	return entries, err
}

func queryCommunities(st *state.State, _ []byte) (any, error) {
	communities, err := st.CommunityRecords()
	if communities == nil {
		communities = []types.Community{}
	}
	return communities, err
}

type ReputationQuery struct {
	Community types.CommunityID   `json:"community"`
	Cycle     types.CeremonyIndex `json:"cycle"`
	Account   types.AccountID     `json:"account,omitempty"`
}

type ReputationInfo struct {
	Reputation *types.Reputation `json:"reputation,omitempty"`
	Verified   uint64            `json:"verified"`
}

func queryReputation(st *state.State, data []byte) (any, error) {
	var q ReputationQuery
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, err
	}
	var info ReputationInfo
	var err error
	if q.Account != "" {
		rep, err := st.Reputation(q.Community, q.Cycle, types.AccountID(strings.ToUpper(string(q.Account))))
		if err != nil {
			return nil, err
		}
		info.Reputation = &rep
	}
	info.Verified, err = st.VerifiedCount(q.Community, q.Cycle)
	return info, err
}

func queryScheduler(st *state.State, _ []byte) (any, error) {
	return st.SchedulerState()
}

func queryParams(st *state.State, _ []byte) (any, error) {
	return st.Params()
}

func queryCouncil(st *state.State, _ []byte) (any, error) {
	council, err := st.Council()
	if council == nil {
		council = []types.AccountID{}
	}
	return council, err
}
