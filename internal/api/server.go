// Package api serves the read-only debug HTTP surface: a browsable snapshot
// of host state for tooling and troubleshooting. All mutation goes through
// the IPC socket; nothing here changes state.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/tabhost/internal/ipc"
	"github.com/dgnsrekt/tabhost/internal/tabs"
)

// Service is the host surface the debug API reads from.
type Service interface {
	WebTabsSupported() bool
	ListTabs(now time.Time) []ipc.TabGroup
	TabState(id tabs.TabID, now time.Time) (*ipc.TabState, bool)
	TabPanelState() ipc.PanelState
	ListInspectorTargets() ([]ipc.InspectorTarget, error)
}

func NewServer(svc Service, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Tab Host Debug API", ipc.Version)
	api := humachi.New(router, cfg)

	registerHandlers(api, svc)
	return router
}

func registerHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type capabilitiesOutput struct {
		Body ipc.Capabilities
	}
	huma.Register(api, huma.Operation{OperationID: "get-capabilities", Method: http.MethodGet, Path: "/api/v1/capabilities", Summary: "Host feature surface", Tags: []string{"Host"}},
		func(ctx context.Context, input *struct{}) (*capabilitiesOutput, error) {
			out := &capabilitiesOutput{}
			out.Body = ipc.NewCapabilities(svc.WebTabsSupported())
			return out, nil
		})

	type tabListOutput struct {
		Body struct {
			Groups []ipc.TabGroup `json:"groups"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-tabs", Method: http.MethodGet, Path: "/api/v1/tabs", Summary: "List all tabs grouped in display order", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *struct{}) (*tabListOutput, error) {
			out := &tabListOutput{}
			out.Body.Groups = svc.ListTabs(time.Now())
			if out.Body.Groups == nil {
				out.Body.Groups = []ipc.TabGroup{}
			}
			return out, nil
		})

	type tabStateInput struct {
		Index      uint32 `path:"index"`
		Generation uint32 `path:"generation"`
	}
	type tabStateOutput struct {
		Body ipc.TabState
	}
	huma.Register(api, huma.Operation{OperationID: "get-tab-state", Method: http.MethodGet, Path: "/api/v1/tabs/{index}/{generation}", Summary: "Get one tab's state", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *tabStateInput) (*tabStateOutput, error) {
			id := tabs.TabID{Index: input.Index, Generation: input.Generation}
			state, ok := svc.TabState(id, time.Now())
			if !ok {
				return nil, huma.Error404NotFound(fmt.Sprintf("no tab %s", id))
			}
			out := &tabStateOutput{}
			out.Body = *state
			return out, nil
		})

	type panelOutput struct {
		Body ipc.PanelState
	}
	huma.Register(api, huma.Operation{OperationID: "get-tab-panel", Method: http.MethodGet, Path: "/api/v1/panel", Summary: "Tab panel settings", Tags: []string{"Panel"}},
		func(ctx context.Context, input *struct{}) (*panelOutput, error) {
			out := &panelOutput{}
			out.Body = svc.TabPanelState()
			return out, nil
		})

	type targetsOutput struct {
		Body struct {
			Targets []ipc.InspectorTarget `json:"targets"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-inspector-targets", Method: http.MethodGet, Path: "/api/v1/inspector/targets", Summary: "List attachable inspector targets", Tags: []string{"Inspector"}},
		func(ctx context.Context, input *struct{}) (*targetsOutput, error) {
			targets, err := svc.ListInspectorTargets()
			if err != nil {
				return nil, mapErr(err)
			}
			if targets == nil {
				targets = []ipc.InspectorTarget{}
			}
			out := &targetsOutput{}
			out.Body.Targets = targets
			return out, nil
		})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *ipc.Error
	if errors.As(err, &coded) {
		switch coded.Code {
		case ipc.CodeInvalidRequest:
			return huma.Error400BadRequest(coded.Message)
		case ipc.CodeNotFound:
			return huma.Error404NotFound(coded.Message)
		case ipc.CodePermissionDenied:
			return huma.Error403Forbidden(coded.Message)
		case ipc.CodeAmbiguous:
			return huma.Error409Conflict(coded.Message)
		case ipc.CodeUnsupported:
			return huma.Error501NotImplemented(coded.Message)
		case ipc.CodeTimeout:
			return huma.Error504GatewayTimeout(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
