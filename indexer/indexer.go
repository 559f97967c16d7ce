package indexer

import (
	"context"
	"errors"
	"time"

	"github.com/calehh/qf-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	comethttp "github.com/cometbft/cometbft/rpc/client/http"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

var ErrEventDecode = errors.New("decode event fail")

// BlockSource is the part of the CometBFT RPC client the indexer reads from.
type BlockSource interface {
	Status(ctx context.Context) (*coretypes.ResultStatus, error)
	BlockResults(ctx context.Context, height *int64) (*coretypes.ResultBlockResults, error)
}

type ChainIndexer struct {
	logger        cmtlog.Logger
	Height        int64
	db            *gorm.DB
	src           BlockSource
	interval      time.Duration
	eventHandlers map[string]eventHandler
}

func OpenDB(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Height{}, &Proposal{}, &Vote{}, &Redemption{}, &Round{}).Error; err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func NewChainIndexer(logger cmtlog.Logger, dbPath string, chainUrl string, interval time.Duration) (*ChainIndexer, error) {
	logger.Info("NewChainIndexer", "dbPath", dbPath, "url", chainUrl)
	cli, err := comethttp.New(chainUrl, "/websocket")
	if err != nil {
		return nil, err
	}
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}
	return NewChainIndexerWithDB(logger, db, cli, interval)
}

func NewChainIndexerWithDB(logger cmtlog.Logger, db *gorm.DB, src BlockSource, interval time.Duration) (*ChainIndexer, error) {
	h := Height{Id: 1}
	if err := db.First(&h).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c := &ChainIndexer{
		logger:   logger.With("module", "indexer"),
		Height:   int64(h.Height + 1),
		db:       db,
		src:      src,
		interval: interval,
	}
	c.eventHandlers = map[string]eventHandler{
		types.EventProposeType:  c.handleEventPropose,
		types.EventVoteType:     c.handleEventVote,
		types.EventCancelType:   c.handleEventCancel,
		types.EventFinalizeType: c.handleEventFinalize,
		types.EventQueueType:    c.handleEventQueue,
		types.EventRedeemType:   c.handleEventRedeem,
	}
	return c, nil
}

func (c *ChainIndexer) Close() error {
	return c.db.Close()
}

type eventHandler func(db *gorm.DB, event abci.Event, height int64) error

func (c *ChainIndexer) handleEvent(db *gorm.DB, event abci.Event, height int64) error {
	if h, ok := c.eventHandlers[event.Type]; ok {
		return h(db, event, height)
	}
	return nil
}

func (c *ChainIndexer) handleEventPropose(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventPropose(event)
	if ev == nil {
		return ErrEventDecode
	}
	proposal := Proposal{
		Id:          ev.Proposal,
		Proposer:    ev.Proposer.Hex(),
		Recipient:   ev.Recipient.Hex(),
		Description: ev.Description,
		Status:      ProposalStatusActive,
		NewHeight:   uint64(height),
	}
	return db.Save(&proposal).Error
}

func (c *ChainIndexer) handleEventVote(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventVote(event)
	if ev == nil {
		return ErrEventDecode
	}
	vote := Vote{
		Proposal: ev.Proposal,
		Voter:    ev.Voter.Hex(),
		Weight:   ev.Weight.Dec(),
		Height:   uint64(height),
	}
	if err := db.Create(&vote).Error; err != nil {
		return err
	}
	return db.Model(&Proposal{Id: ev.Proposal}).UpdateColumn("vote_count", gorm.Expr("vote_count + ?", 1)).Error
}

func (c *ChainIndexer) handleEventCancel(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventCancel(event)
	if ev == nil {
		return ErrEventDecode
	}
	return db.Model(&Proposal{Id: ev.Proposal}).Update("status", ProposalStatusCanceled).Error
}

func (c *ChainIndexer) handleEventQueue(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventQueue(event)
	if ev == nil {
		return ErrEventDecode
	}
	return db.Model(&Proposal{Id: ev.Proposal}).Updates(map[string]any{
		"status":       ProposalStatusQueued,
		"shares":       ev.Shares.Dec(),
		"distributed":  ev.Distributed.Dec(),
		"queue_height": uint64(height),
	}).Error
}

func (c *ChainIndexer) handleEventRedeem(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventRedeem(event)
	if ev == nil {
		return ErrEventDecode
	}
	redemption := Redemption{
		Caller:   ev.Caller.Hex(),
		Owner:    ev.Owner.Hex(),
		Receiver: ev.Receiver.Hex(),
		Shares:   ev.Shares.Dec(),
		Assets:   ev.Assets.Dec(),
		Height:   uint64(height),
	}
	return db.Create(&redemption).Error
}

func (c *ChainIndexer) handleEventFinalize(db *gorm.DB, event abci.Event, height int64) error {
	ev := types.DecodeEventFinalize(event)
	if ev == nil {
		return ErrEventDecode
	}
	return db.Save(&Round{
		Id:              1,
		FinalizedAt:     ev.FinalizedAt.Unix(),
		RedemptionStart: ev.RedemptionStart.Unix(),
		Height:          uint64(height),
	}).Error
}

// indexBlock stores the events of one block and advances the indexed height
// in a single sqlite transaction.
func (c *ChainIndexer) indexBlock(ctx context.Context, height int64) (err error) {
	res, err := c.src.BlockResults(ctx, &height)
	if err != nil {
		return err
	}
	db := c.db.Begin()
	if err = db.Error; err != nil {
		return err
	}
	defer func() {
		if err != nil {
			db.Rollback()
		}
	}()
	for _, r := range res.TxsResults {
		if r.Code != abci.CodeTypeOK {
			continue
		}
		for _, event := range r.Events {
			if err = c.handleEvent(db, event, height); err != nil {
				c.logger.Error("handle event fail", "height", height, "type", event.Type, "err", err)
				return err
			}
		}
	}
	if err = db.Save(&Height{Id: 1, Height: uint64(height)}).Error; err != nil {
		return err
	}
	return db.Commit().Error
}

// Sync indexes every block up to the latest one the node reports.
func (c *ChainIndexer) Sync(ctx context.Context) error {
	status, err := c.src.Status(ctx)
	if err != nil {
		return err
	}
	for status.SyncInfo.LatestBlockHeight >= c.Height {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.logger.Debug("indexer syncing", "height", c.Height)
		if err := c.indexBlock(ctx, c.Height); err != nil {
			return err
		}
		c.Height++
	}
	return nil
}

func (c *ChainIndexer) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Sync(ctx); err != nil {
				c.logger.Error("indexer sync fail", "height", c.Height, "err", err)
			}
		}
	}
}

func page(db *gorm.DB, p int, pageSize int) *gorm.DB {
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = 100
	}
	if p < 0 {
		p = 0
	}
	return db.Offset(p * pageSize).Limit(pageSize)
}

func (c *ChainIndexer) getProposals(proposer string, p int, pageSize int) ([]Proposal, uint64, error) {
	query := c.db.Model(&Proposal{})
	if proposer != "" {
		query = query.Where("proposer = ?", proposer)
	}
	var total uint64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var proposals []Proposal
	if err := page(query.Order("id desc"), p, pageSize).Find(&proposals).Error; err != nil {
		return nil, 0, err
	}
	return proposals, total, nil
}

func (c *ChainIndexer) getProposalById(proposalId uint64) (Proposal, error) {
	var proposal Proposal
	err := c.db.First(&proposal, proposalId).Error
	return proposal, err
}

func (c *ChainIndexer) getVotes(proposal uint64, voter string, p int, pageSize int) ([]Vote, uint64, error) {
	query := c.db.Model(&Vote{})
	if proposal != 0 {
		query = query.Where("proposal = ?", proposal)
	}
	if voter != "" {
		query = query.Where("voter = ?", voter)
	}
	var total uint64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var votes []Vote
	if err := page(query.Order("id asc"), p, pageSize).Find(&votes).Error; err != nil {
		return nil, 0, err
	}
	return votes, total, nil
}

func (c *ChainIndexer) getRedemptions(owner string, p int, pageSize int) ([]Redemption, uint64, error) {
	query := c.db.Model(&Redemption{})
	if owner != "" {
		query = query.Where("owner = ?", owner)
	}
	var total uint64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var redemptions []Redemption
	if err := page(query.Order("id desc"), p, pageSize).Find(&redemptions).Error; err != nil {
		return nil, 0, err
	}
	return redemptions, total, nil
}

func (c *ChainIndexer) getRound() (*Round, error) {
	r := Round{Id: 1}
	err := c.db.First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
