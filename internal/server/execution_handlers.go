package server

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/halcyontrade/halcyon-api/internal/types"
	"github.com/halcyontrade/halcyon-api/pkg/response"
)

type createExecutionRequest struct {
	StrategyID   string              `json:"strategy_id" binding:"required"`
	ChainConfigs []types.ChainConfig `json:"chain_configs" binding:"required"`
}

type executionSummary struct {
	ExecutionID string                  `json:"execution_id"`
	StrategyID  string                  `json:"strategy_id"`
	Status      string                  `json:"status"`
	Starting    types.InventorySnapshot `json:"starting_inventory"`
}

// CreateExecutionHandler opens a new execution and returns its id and
// starting snapshot.
func (s *Server) CreateExecutionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createExecutionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Strategy id and chain configs are required")
			return
		}

		executionID := uuid.New().String()
		exec, err := s.executions.Create(c.Request.Context(), executionID, req.StrategyID, req.ChainConfigs)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, executionSummary{
			ExecutionID: exec.ID,
			StrategyID:  exec.StrategyID,
			Status:      exec.Status(),
			Starting:    exec.StartingInventory(),
		})
	}
}

// CloseExecutionHandler closes an execution and returns the realized P&L.
func (s *Server) CloseExecutionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := s.executions.Close(c.Request.Context(), c.Param("execution_id"))
		response.Handle(c, result, err)
	}
}

// ListExecutionsHandler lists the currently open executions.
func (s *Server) ListExecutionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		active := s.executions.ListActive()
		summaries := make([]executionSummary, 0, len(active))
		for _, exec := range active {
			summaries = append(summaries, executionSummary{
				ExecutionID: exec.ID,
				StrategyID:  exec.StrategyID,
				Status:      exec.Status(),
				Starting:    exec.StartingInventory(),
			})
		}
		response.Success(c, summaries)
	}
}

// ExecutionHistoryHandler lists persisted execution records, newest first.
func (s *Server) ExecutionHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := s.executions.History()
		response.Handle(c, records, err)
	}
}
