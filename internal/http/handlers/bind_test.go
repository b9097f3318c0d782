package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/usergraph/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type bindErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			JSON   string                `json:"json"`
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func bindRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/graphql", func(ctx *gin.Context) {
		var req handlers.GraphQLRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusOK)
	})
	return r
}

func postBody(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBindError(t *testing.T, w *httptest.ResponseRecorder) bindErrorResponse {
	t.Helper()

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
	}
	return resp
}

func TestBindJSON_MissingQueryUsesJSONFieldName(t *testing.T) {
	resp := decodeBindError(t, postBody(bindRouter(), `{"variables":{}}`))

	if resp.Error.Code != "invalid_request" {
		t.Fatalf("unexpected code: %s", resp.Error.Code)
	}
	if len(resp.Error.Details.Fields) != 1 {
		t.Fatalf("expected one field error, got %+v", resp.Error.Details.Fields)
	}

	fe := resp.Error.Details.Fields[0]
	if fe.Field != "query" || fe.Rule != "required" || fe.Message == "" {
		t.Fatalf("unexpected field error: %+v", fe)
	}
}

func TestBindJSON_TypeMismatch(t *testing.T) {
	resp := decodeBindError(t, postBody(bindRouter(), `{"query":42}`))

	if resp.Error.Details.JSON != "invalid_json_type" {
		t.Fatalf("expected invalid_json_type, got %q", resp.Error.Details.JSON)
	}
	if len(resp.Error.Details.Fields) == 0 || resp.Error.Details.Fields[0].Rule != "type" {
		t.Fatalf("expected a type field error, got %+v", resp.Error.Details.Fields)
	}
}

func TestBindJSON_MalformedBodies(t *testing.T) {
	bodies := map[string]string{
		"truncated": `{"query":`,
		"bad token": `{"query": nope}`,
		"empty":     ``,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			resp := decodeBindError(t, postBody(bindRouter(), body))

			if resp.Error.Details.JSON != "invalid_json_syntax" {
				t.Fatalf("json detail = %q, want invalid_json_syntax", resp.Error.Details.JSON)
			}
		})
	}
}
