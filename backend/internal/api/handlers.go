package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"kinship/backend/internal/adapter"
	"kinship/backend/internal/tools"
	apperrors "kinship/backend/pkg/errors"
)

type handler struct {
	exec *tools.Executor
	log  *zap.Logger
}

// StatusFor maps a result's error code to an HTTP status
func StatusFor(code string) int {
	switch code {
	case "":
		return http.StatusOK
	case string(apperrors.ErrorTypeNotFound), tools.ErrorCodeUnknownTool:
		return http.StatusNotFound
	case string(apperrors.ErrorTypeInvalidSlot), string(apperrors.ErrorTypeValidation):
		return http.StatusBadRequest
	case string(apperrors.ErrorTypeCapacityExceeded), string(apperrors.ErrorTypeAmbiguousMatch):
		return http.StatusConflict
	case string(apperrors.ErrorTypeContext):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) execute(c *gin.Context, source, name string, args map[string]interface{}) *tools.ToolResult {
	execCtx := &tools.ExecutionContext{
		RequestID: c.GetString(requestIDKey),
		Source:    source,
	}
	return h.exec.Execute(c.Request.Context(), execCtx, adapter.ToolCall{
		ID:        execCtx.RequestID,
		Name:      name,
		Arguments: args,
	})
}

func (h *handler) respond(c *gin.Context, name string, args map[string]interface{}) {
	result := h.execute(c, "http", name, args)
	c.JSON(StatusFor(result.ErrorCode), result)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, &tools.ToolResult{
		Success:   false,
		Error:     err.Error(),
		ErrorCode: string(apperrors.ErrorTypeValidation),
	})
}

// listTools returns the tool definitions in OpenAI function format
func (h *handler) listTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": adapter.ToOpenAITools(tools.GetAllTools())})
}

// runTool executes one tool; the JSON body is its arguments object
func (h *handler) runTool(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err)
		return
	}
	args, err := adapter.ParseArguments(string(body))
	if err != nil {
		badRequest(c, err)
		return
	}
	h.respond(c, c.Param("name"), args)
}

// runToolCalls executes a model's tool calls in order and answers with one
// tool-role message per call. Failed calls still get a message.
func (h *handler) runToolCalls(c *gin.Context) {
	var req struct {
		ToolCalls []openai.ToolCall `json:"tool_calls" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.ToolCalls))
	results := make([]*tools.ToolResult, 0, len(req.ToolCalls))
	for _, tc := range req.ToolCalls {
		var result *tools.ToolResult
		call, err := adapter.DecodeToolCall(tc)
		if err != nil {
			result = &tools.ToolResult{
				Success:   false,
				Error:     err.Error(),
				ErrorCode: string(apperrors.ErrorTypeValidation),
			}
		} else {
			result = h.execute(c, "tool_call", call.Name, call.Arguments)
		}

		msg, err := adapter.ToolMessage(tc.ID, tc.Function.Name, result)
		if err != nil {
			h.log.Error("Failed to encode tool result", zap.String("tool", tc.Function.Name), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode tool result"})
			return
		}
		messages = append(messages, msg)
		results = append(results, result)
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"results":  results,
	})
}

func (h *handler) getContacts(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		h.respond(c, tools.ToolListContacts, nil)
		return
	}
	h.respond(c, tools.ToolGetContact, map[string]interface{}{"name": name})
}

func (h *handler) getContact(c *gin.Context) {
	h.respond(c, tools.ToolGetContact, map[string]interface{}{"contact_id": c.Param("id")})
}

func (h *handler) reconcileContact(c *gin.Context) {
	h.respond(c, tools.ToolReconcileContact, map[string]interface{}{"contact_id": c.Param("id")})
}

func (h *handler) getNode(c *gin.Context) {
	h.respond(c, tools.ToolGetNode, map[string]interface{}{"id": c.Param("id")})
}

func (h *handler) getNeighbors(c *gin.Context) {
	h.respond(c, tools.ToolGetNeighbors, map[string]interface{}{
		"id":   c.Param("id"),
		"type": c.Query("type"),
	})
}

func (h *handler) deleteNode(c *gin.Context) {
	h.respond(c, tools.ToolDeleteNode, map[string]interface{}{"id": c.Param("id")})
}

func (h *handler) graphStats(c *gin.Context) {
	h.respond(c, tools.ToolGraphStatistics, nil)
}
