package agent

import (
	"context"
	"errors"
	"time"

	"github.com/calehh/democracy-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

const defaultPageSize = 20

// ChainIndexer follows the chain over RPC and keeps a queryable copy of the
// governance history in sqlite.
type ChainIndexer struct {
	logger        cmtlog.Logger
	Url           string
	Height        int64
	db            *gorm.DB
	cli           *comethttp.HTTP
	eventHandlers map[string]eventHandler
}

func NewChainIndexer(logger cmtlog.Logger, dbPath string, chainUrl string) (*ChainIndexer, error) {
	logger.Info("NewChainIndexer", "dbPath", dbPath, "url", chainUrl)
	cli, err := comethttp.New(chainUrl, "/websocket")
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Community{}, &Proposal{}, &ProposalVote{}, &Enactment{}, &Height{}).Error; err != nil {
		return nil, err
	}
	h := Height{Id: 1}
	if err = db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	c := &ChainIndexer{
		logger: logger.With("module", "indexer"),
		Url:    chainUrl,
		Height: int64(h.Height + 1),
		db:     db,
		cli:    cli,
	}
	c.eventHandlers = map[string]eventHandler{
		types.EventCommunityRegisteredType:  c.handleEventCommunityRegistered,
		types.EventCommunityRemovedType:     c.handleEventCommunityRemoved,
		types.EventProposalSubmittedType:    c.handleEventProposalSubmitted,
		types.EventVotedType:                c.handleEventVoted,
		types.EventProposalStateChangedType: c.handleEventProposalStateChanged,
		types.EventProposalEnactedType:      c.handleEventProposalEnacted,
	}
	return c, nil
}

func (c *ChainIndexer) Close() error {
	return c.db.Close()
}

type eventHandler func(ctx context.Context, event abci.Event, height int64)

func (c *ChainIndexer) handleEvent(ctx context.Context, event abci.Event, height int64) {
	if h, ok := c.eventHandlers[event.Type]; ok {
		h(ctx, event, height)
	}
}

func (c *ChainIndexer) handleEventCommunityRegistered(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventCommunityRegistered(event)
	community := Community{
		Id:             string(ev.Community),
		Name:           ev.Name,
		RegisterHeight: uint64(height),
	}
	if err := c.db.Save(&community).Error; err != nil {
		c.logger.Error("save community fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventCommunityRemoved(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventCommunityRemoved(event)
	err := c.db.Model(&Community{}).Where("id = ?", string(ev.Community)).Update("removed", true).Error
	if err != nil {
		c.logger.Error("update community fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventProposalSubmitted(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventProposalSubmitted(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	proposal := Proposal{
		Id:           ev.Proposal,
		Proposer:     string(ev.Proposer),
		Kind:         uint64(ev.Identifier.Kind),
		Community:    string(ev.Identifier.Community),
		Action:       string(ev.Action),
		Start:        ev.Start,
		StartCycle:   uint64(ev.StartCycle),
		State:        uint64(types.ProposalOngoing),
		UpdateHeight: uint64(height),
	}
	if err := c.db.Save(&proposal).Error; err != nil {
		c.logger.Error("save proposal fail", "err", err)
	}
}

func (c *ChainIndexer) handleEventVoted(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventVoted(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	vote := ProposalVote{
		Proposal: ev.Proposal,
		Voter:    string(ev.Voter),
		Vote:     uint64(ev.Vote),
		Spent:    ev.Spent,
		Height:   uint64(height),
	}
	if err := c.db.Create(&vote).Error; err != nil {
		c.logger.Error("save vote fail", "err", err)
		return
	}
	err := c.db.Model(&Proposal{}).Where("id = ?", ev.Proposal).Updates(map[string]interface{}{
		"turnout":       ev.Turnout,
		"ayes":          ev.Ayes,
		"update_height": uint64(height),
	}).Error
	if err != nil {
		c.logger.Error("update tally fail", "proposal", ev.Proposal, "err", err)
	}
}

func (c *ChainIndexer) handleEventProposalStateChanged(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventProposalStateChanged(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	err := c.db.Model(&Proposal{}).Where("id = ?", ev.Proposal).Updates(map[string]interface{}{
		"state":         uint64(ev.To.Kind),
		"state_since":   ev.To.Since,
		"update_height": uint64(height),
	}).Error
	if err != nil {
		c.logger.Error("update proposal state fail", "proposal", ev.Proposal, "err", err)
	}
}

func (c *ChainIndexer) handleEventProposalEnacted(ctx context.Context, event abci.Event, height int64) {
	ev := types.DecodeEventProposalEnacted(event)
	if ev == nil {
		c.logger.Error("decode event fail", "event", event)
		return
	}
	enactment := Enactment{
		Id:        ev.Proposal,
		Kind:      uint64(ev.Identifier.Kind),
		Community: string(ev.Identifier.Community),
		Height:    ev.Height,
	}
	if err := c.db.Save(&enactment).Error; err != nil {
		c.logger.Error("save enactment fail", "err", err)
	}
}

// indexBlock applies the events of one block in execution order: the events
// the phase scheduler emitted at block start first, then the results of the
// successful transactions.
func (c *ChainIndexer) indexBlock(ctx context.Context, res *coretypes.ResultBlockResults) error {
	for _, event := range res.FinalizeBlockEvents {
		c.handleEvent(ctx, event, res.Height)
	}
	for _, txRes := range res.TxsResults {
		if txRes.Code != abci.CodeTypeOK {
			continue
		}
		for _, event := range txRes.Events {
			c.handleEvent(ctx, event, res.Height)
		}
	}
	return c.db.Save(&Height{
		Id:     1,
		Height: uint64(res.Height),
	}).Error
}

func (c *ChainIndexer) reconnect() {
	if c.cli != nil && c.cli.IsRunning() {
		return
	}
	if c.cli != nil {
		c.cli.Stop()
	}
	cli, err := comethttp.New(c.Url, "/websocket")
	if err != nil {
		c.logger.Error("reconnect fail", "err", err)
		return
	}
	c.cli = cli
}

func (c *ChainIndexer) Start(ctx context.Context) {
	c.logger.Info("ChainIndexer start", "height", c.Height)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b, err := c.cli.Status(ctx)
			if err != nil {
				c.logger.Error("get status fail", "err", err)
				c.reconnect()
				continue
			}
			for b.SyncInfo.LatestBlockHeight >= c.Height {
				if ctx.Err() != nil {
					return
				}
				height := c.Height
				res, err := c.cli.BlockResults(ctx, &height)
				if err != nil {
					c.logger.Error("get block results fail", "height", height, "err", err)
					c.reconnect()
					break
				}
				if err = c.indexBlock(ctx, res); err != nil {
					c.logger.Error("save height fail", "height", height, "err", err)
					break
				}
				c.Height++
			}
		}
	}
}

func pageOf(page int, pageSize int) (offset int, limit int) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if page < 0 {
		page = 0
	}
	return page * pageSize, pageSize
}

func (c *ChainIndexer) getProposals(community string, state *uint64, page int, pageSize int) ([]Proposal, uint64, error) {
	q := c.db.Model(&Proposal{})
	if community != "" {
		q = q.Where("community = ?", community)
	}
	if state != nil {
		q = q.Where("state = ?", *state)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := pageOf(page, pageSize)
	var proposals []Proposal
	if err := q.Order("id desc").Offset(offset).Limit(limit).Find(&proposals).Error; err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *ChainIndexer) getProposalById(proposalId uint64) (Proposal, error) {
	var proposal Proposal
	err := c.db.Where("id = ?", proposalId).First(&proposal).Error
	return proposal, err
}

func (c *ChainIndexer) getVotes(proposal uint64, voter string, page int, pageSize int) ([]ProposalVote, uint64, error) {
	q := c.db.Model(&ProposalVote{})
	if proposal != 0 {
		q = q.Where("proposal = ?", proposal)
	}
	if voter != "" {
		q = q.Where("voter = ?", voter)
	}
	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := pageOf(page, pageSize)
	var votes []ProposalVote
	if err := q.Order("id asc").Offset(offset).Limit(limit).Find(&votes).Error; err != nil {
		return nil, 0, err
	}
	return votes, total, nil
}

func (c *ChainIndexer) getEnactments(page int, pageSize int) ([]Enactment, uint64, error) {
	var total uint64
	if err := c.db.Model(&Enactment{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := pageOf(page, pageSize)
	var enactments []Enactment
	err := c.db.Order("height desc, id asc").Offset(offset).Limit(limit).Find(&enactments).Error
	if err != nil {
		return nil, 0, err
	}
	return enactments, total, nil
}

func (c *ChainIndexer) getCommunities() ([]Community, error) {
	var communities []Community
	err := c.db.Order("register_height asc").Find(&communities).Error
	return communities, err
}
