package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"lifeos/internal/app"
	"lifeos/internal/dashboard"
	"lifeos/internal/logging"
	"lifeos/internal/repo"
	"lifeos/internal/transport"
)

const (
	DefaultBasePath  = "/v0"
	DefaultRelayPath = "/api/notion"
	apiVersion       = "0.1.0"
)

// Config for the HTTP handler. Relay serves the query relay; App, when set,
// adds the dashboard API under BasePath.
type Config struct {
	App            *app.App
	Relay          transport.Transport
	BasePath       string
	RelayPath      string
	AllowedOrigins []string
	Auth           AuthConfig
	Logger         *zap.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"unknown dashboard: dashboards"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"dashboard\":\"cockpit\"}"`
}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the relay, the health check and the
// dashboard API.
func New(cfg Config) (http.Handler, error) {
	if cfg.Relay == nil && cfg.App == nil {
		return nil, errors.New("server needs a relay transport or an app")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	basePath := normalizePath(cfg.BasePath, DefaultBasePath)
	relayPath := normalizePath(cfg.RelayPath, DefaultRelayPath)

	huma.DefaultArrayNullable = false
	// Override Huma errors to use the requested envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(requestID)
	router.Use(requestLogger(logger.Named("http")))
	router.Use(cors(cfg.AllowedOrigins))
	router.Use(newAuthMiddleware(basePath, relayPath, cfg.Auth))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})
	if cfg.Relay != nil {
		router.HandleFunc(relayPath, newRelayHandler(cfg.Relay, logger.Named("relay")))
	}
	if cfg.App == nil {
		return router, nil
	}

	hcfg := huma.DefaultConfig("LifeOS API", apiVersion)
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerStatus(group, cfg.App)
	registerDashboards(group, cfg.App)
	registerActions(group, cfg.App)
	registerOpenAPI(router, api, basePath, cfg.Auth.enabled())

	return router, nil
}

func normalizePath(p, fallback string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p == "" {
		return fallback
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	msg := logging.SanitizeError(err)
	if errors.Is(err, dashboard.ErrUnknownDashboard) {
		return newAPIError(http.StatusNotFound, "not_found", msg, nil)
	}
	var ae *transport.APIError
	if errors.As(err, &ae) {
		switch ae.StatusCode {
		case http.StatusNotFound:
			return newAPIError(http.StatusNotFound, "not_found", msg, nil)
		case http.StatusBadRequest:
			return newAPIError(http.StatusBadRequest, "bad_request", msg, map[string]any{"upstream_code": ae.Code})
		}
		return newAPIError(http.StatusBadGateway, "upstream_error", msg, map[string]any{"upstream_status": ae.StatusCode})
	}
	if errors.Is(err, repo.ErrFetchFailed) {
		return newAPIError(http.StatusBadGateway, "upstream_error", msg, nil)
	}
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "required") || strings.Contains(lowered, "invalid") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusBadGateway:
		return "upstream_error"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get(path.Join(basePath, "docs"), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string, withAuth bool) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			if withAuth {
				applyAuthSecurity(oas, basePath)
			}
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	healthPath := path.Join("/", basePath, "health")
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>LifeOS API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerStatus(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Application status",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body StatusResponse `json:"body"`
	}, error) {
		return &struct {
			Body StatusResponse `json:"body"`
		}{Body: a.Status()}, nil
	})
}

func registerDashboards(api huma.API, a *app.App) {
	type dashboardPath struct {
		Name string `path:"name"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "list-dashboards",
		Method:      http.MethodGet,
		Path:        "/dashboards",
		Summary:     "List dashboards",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []DashboardSummary `json:"body"`
	}, error) {
		names := a.Manager.Names()
		out := make([]DashboardSummary, 0, len(names))
		for _, name := range names {
			if r, ok := a.Manager.Renderer(name); ok {
				out = append(out, dashboardSummary(a, r))
			}
		}
		return &struct {
			Body []DashboardSummary `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-dashboard",
		Method:      http.MethodGet,
		Path:        "/dashboards/{name}",
		Summary:     "Get the last rendered frames of a dashboard",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *dashboardPath) (*struct {
		Body DashboardResponse `json:"body"`
	}, error) {
		r, ok := a.Manager.Renderer(input.Name)
		if !ok {
			return nil, handleError(fmt.Errorf("%w: %s", dashboard.ErrUnknownDashboard, input.Name))
		}
		return &struct {
			Body DashboardResponse `json:"body"`
		}{Body: dashboardResponse(a, r)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "render-dashboard",
		Method:      http.MethodPost,
		Path:        "/dashboards/{name}/render",
		Summary:     "Render a dashboard now",
		Errors: []int{
			http.StatusNotFound,
			http.StatusBadGateway,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *dashboardPath) (*struct {
		Body DashboardResponse `json:"body"`
	}, error) {
		r, ok := a.Manager.Renderer(input.Name)
		if !ok {
			return nil, handleError(fmt.Errorf("%w: %s", dashboard.ErrUnknownDashboard, input.Name))
		}
		if err := a.Manager.Render(ctx, input.Name); err != nil {
			se := handleError(err)
			if ae, ok := se.(*apiError); ok {
				if ae.Body.Details == nil {
					ae.Body.Details = map[string]any{}
				}
				ae.Body.Details["dashboard"] = input.Name
			}
			return nil, se
		}
		return &struct {
			Body DashboardResponse `json:"body"`
		}{Body: dashboardResponse(a, r)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-current-dashboard",
		Method:      http.MethodPut,
		Path:        "/dashboards/current",
		Summary:     "Switch the dashboard kept fresh by the refresh timer",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body SetCurrentRequest `json:"body"`
	}) (*struct {
		Body CurrentResponse `json:"body"`
	}, error) {
		name := strings.TrimSpace(input.Body.Name)
		if name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		if err := a.Manager.SetCurrent(name); err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"dashboards": a.Manager.Names()})
		}
		return &struct {
			Body CurrentResponse `json:"body"`
		}{Body: CurrentResponse{Current: a.Manager.Current()}}, nil
	})
}

func registerActions(api huma.API, a *app.App) {
	huma.Register(api, huma.Operation{
		OperationID: "complete-action",
		Method:      http.MethodPost,
		Path:        "/actions/{id}/complete",
		Summary:     "Mark an action done",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusBadGateway,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body ActionResponse `json:"body"`
	}, error) {
		id := strings.TrimSpace(input.ID)
		if id == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "action id is required", nil)
		}
		updated, err := a.CompleteAction(ctx, id)
		if err != nil {
			return nil, handleError(err)
		}
		by := ""
		if p, ok := principalFromContext(ctx); ok {
			by = p.Subject
		}
		return &struct {
			Body ActionResponse `json:"body"`
		}{Body: actionResponse(updated, by)}, nil
	})
}
