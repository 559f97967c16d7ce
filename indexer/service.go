package indexer

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Service struct {
	engine     *gin.Engine
	indexer    *ChainIndexer
	listenAddr string
}

func NewService(listenAddr string, indexer *ChainIndexer) *Service {
	r := gin.Default()
	s := &Service{
		engine:     r,
		indexer:    indexer,
		listenAddr: listenAddr,
	}
	s.engine.POST("/getProposals", s.handleGetProposals)
	s.engine.POST("/getVotes", s.handleGetVotes)
	s.engine.POST("/getRedemptions", s.handleGetRedemptions)
	s.engine.GET("/round", s.handleGetRound)
	return s
}

func (s *Service) Handler() http.Handler {
	return s.engine
}

func (s *Service) Start() error {
	return s.engine.Run(s.listenAddr)
}

type ProposalInfo struct {
	Proposal Proposal `json:"proposal"`
	Votes    []Vote   `json:"votes"`
}

type GetProposalsReq struct {
	ProposalId uint64 `json:"proposalId"`
	Proposer   string `json:"proposer"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
}

type GetProposalResponse struct {
	Proposals []ProposalInfo `json:"proposals"`
	Total     uint64         `json:"total"`
}

func (s *Service) handleGetProposals(c *gin.Context) {
	var response GetProposalResponse
	response.Proposals = make([]ProposalInfo, 0)
	var requestData GetProposalsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var proposals []Proposal
	if requestData.ProposalId != 0 {
		proposal, err := s.indexer.getProposalById(requestData.ProposalId)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		proposals = append(proposals, proposal)
		response.Total = 1
	} else {
		var err error
		proposals, response.Total, err = s.indexer.getProposals(requestData.Proposer, requestData.Page, requestData.PageSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	for _, proposal := range proposals {
		votes, _, err := s.indexer.getVotes(proposal.Id, "", 0, 1000)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Proposals = append(response.Proposals, ProposalInfo{Proposal: proposal, Votes: votes})
	}
	c.JSON(http.StatusOK, response)
}

type GetVotesReq struct {
	ProposalId uint64 `json:"proposalId"`
	Voter      string `json:"voter"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
}

type GetVotesResponse struct {
	Votes []Vote `json:"votes"`
	Total uint64 `json:"total"`
}

func (s *Service) handleGetVotes(c *gin.Context) {
	var requestData GetVotesReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if requestData.ProposalId == 0 && requestData.Voter == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proposalId or voter is required"})
		return
	}
	votes, total, err := s.indexer.getVotes(requestData.ProposalId, requestData.Voter, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if votes == nil {
		votes = make([]Vote, 0)
	}
	c.JSON(http.StatusOK, GetVotesResponse{Votes: votes, Total: total})
}

type GetRedemptionsReq struct {
	Owner    string `json:"owner"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

type GetRedemptionsResponse struct {
	Redemptions []Redemption `json:"redemptions"`
	Total       uint64       `json:"total"`
}

func (s *Service) handleGetRedemptions(c *gin.Context) {
	var requestData GetRedemptionsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	redemptions, total, err := s.indexer.getRedemptions(requestData.Owner, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if redemptions == nil {
		redemptions = make([]Redemption, 0)
	}
	c.JSON(http.StatusOK, GetRedemptionsResponse{Redemptions: redemptions, Total: total})
}

func (s *Service) handleGetRound(c *gin.Context) {
	round, err := s.indexer.getRound()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if round == nil {
		c.JSON(http.StatusOK, gin.H{"finalized": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"finalized": true, "round": round})
}
