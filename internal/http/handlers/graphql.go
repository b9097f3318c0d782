package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
)

// GraphQLRequest is the standard GraphQL-over-HTTP envelope.
type GraphQLRequest struct {
	Query         string                 `json:"query" binding:"required,max=65536"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

type GraphQLHandler struct {
	schema graphql.Schema
}

func NewGraphQLHandler(schema graphql.Schema) *GraphQLHandler {
	return &GraphQLHandler{schema: schema}
}

func (h *GraphQLHandler) Post(ctx *gin.Context) {
	var req GraphQLRequest
	if !BindJSON(ctx, &req) {
		return
	}

	h.execute(ctx, req)
}

// Get serves ?query=...&operationName=...&variables=<json>.
func (h *GraphQLHandler) Get(ctx *gin.Context) {
	req := GraphQLRequest{
		Query:         ctx.Query("query"),
		OperationName: ctx.Query("operationName"),
	}

	if req.Query == "" {
		RespondBadRequest(ctx, "query parameter is required", nil)
		return
	}

	if raw := ctx.Query("variables"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Variables); err != nil {
			RespondBadRequest(ctx, "variables must be a JSON object", nil)
			return
		}
	}

	h.execute(ctx, req)
}

func (h *GraphQLHandler) execute(ctx *gin.Context, req GraphQLRequest) {
	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        ctx.Request.Context(),
	})

	// resolver errors travel in the body with a 200, as GraphQL clients expect
	ctx.JSON(http.StatusOK, result)
}
