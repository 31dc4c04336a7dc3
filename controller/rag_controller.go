package controller

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/itish2003/guidedpath/models"
	"github.com/itish2003/guidedpath/services"
)

// RAGController handles the HTTP requests for the medical RAG API. It depends
// on the RAGService to perform the actual business logic.
type RAGController struct {
	ragService services.RAGService
}

// NewRAGController is called from main.go to inject the service dependency.
func NewRAGController(service services.RAGService) *RAGController {
	return &RAGController{
		ragService: service,
	}
}

// RegisterRoutes mounts every endpoint on the router.
func (c *RAGController) RegisterRoutes(router gin.IRouter) {
	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/query", c.Query)
		apiV1.POST("/batch-query", c.BatchQuery)
		apiV1.POST("/ingest-documents", c.IngestDocuments)
		apiV1.POST("/process-directories", c.ProcessDirectories)
		apiV1.POST("/validate-query", c.ValidateQuery)
		apiV1.GET("/status", c.Status)
		apiV1.GET("/history", c.History)
		apiV1.DELETE("/history", c.ClearHistory)
	}
}

func badRequest(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body: " + err.Error()})
}

// Query is the handler for POST /api/v1/query. Pipeline failures are still
// reported as a well formed answer with status 200.
func (c *RAGController) Query(ctx *gin.Context) {
	var req models.QueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	response := c.ragService.ProcessQuery(ctx.Request.Context(), req)
	ctx.JSON(http.StatusOK, gin.H{
		"success":  true,
		"data":     response,
		"query_id": response.QueryID,
	})
}

// BatchQuery is the handler for POST /api/v1/batch-query.
func (c *RAGController) BatchQuery(ctx *gin.Context) {
	var req models.BatchQueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	if len(req.Queries) == 0 {
		badRequest(ctx, fmt.Errorf("queries must not be empty"))
		return
	}

	results := c.ragService.BatchProcessQueries(ctx.Request.Context(), req)
	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       results,
		"batch_size": len(results),
	})
}

// IngestDocuments is the handler for POST /api/v1/ingest-documents.
func (c *RAGController) IngestDocuments(ctx *gin.Context) {
	var req models.IngestDocumentsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	result := c.ragService.IngestDocuments(ctx.Request.Context(), req.Documents)
	if !result.Success {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to ingest documents: " + result.Error,
			"result":  result,
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Ingested %d documents", len(req.Documents)),
		"result":  result,
	})
}

// ProcessDirectories is the handler for POST /api/v1/process-directories.
func (c *RAGController) ProcessDirectories(ctx *gin.Context) {
	var req models.ProcessDirectoriesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	resp := c.ragService.ProcessDirectories(ctx.Request.Context(), req)
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Processed %d out of %d documents from %d directories",
			resp.TotalDocumentsProcessed, resp.TotalDocumentsFound, resp.TotalDirectories),
		"total_directories":         resp.TotalDirectories,
		"total_documents_found":     resp.TotalDocumentsFound,
		"total_documents_processed": resp.TotalDocumentsProcessed,
		"results":                   resp.Results,
	})
}

// ValidateQuery is the handler for POST /api/v1/validate-query.
func (c *RAGController) ValidateQuery(ctx *gin.Context) {
	var req models.ValidateQueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    c.ragService.ValidateQuery(req.Query),
	})
}

func (c *RAGController) Status(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.ragService.Status(ctx.Request.Context()))
}

// History is the handler for GET /api/v1/history?limit=N. A missing limit
// returns every stored record.
func (c *RAGController) History(ctx *gin.Context) {
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	records := c.ragService.History(limit)
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    records,
		"count":   len(records),
	})
}

func (c *RAGController) ClearHistory(ctx *gin.Context) {
	c.ragService.ClearHistory()
	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Conversation history cleared"})
}
