package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/policy-llm-gateway/internal/domain"
	"github.com/tjfontaine/policy-llm-gateway/internal/policy"
	"github.com/tjfontaine/policy-llm-gateway/internal/redact"
)

var routeMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

// Register mounts the gateway's HTTP surface on a chi router.
func (g *Gateway) Register(r chi.Router) {
	r.Post("/v1/generate", g.HandleGenerate)
	r.Post("/v1/proxy", g.HandleProxy)
	for _, m := range routeMethods {
		r.Method(m, "/v1/route/{route}", http.HandlerFunc(g.HandleRoute))
		r.Method(m, "/v1/route/{route}/*", http.HandlerFunc(g.HandleRoute))
	}
	r.Post("/admin/reload_policies", g.HandleReloadPolicies)
	r.Post("/admin/policies", g.HandleUpdatePolicies)
}

type generateRequest struct {
	Model    string `json:"model"`
	Provider string `json:"provider"`
	Prompt   string `json:"prompt"`
}

// HandleGenerate is the tenant-level AI convenience endpoint. It always
// takes the AI branch using the request-supplied provider and model against
// tenant-level rate and quota configuration.
func (g *Gateway) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.ErrBadRequest("invalid JSON body"))
		return
	}
	if req.Prompt == "" {
		writeError(w, r, domain.ErrBadRequest("prompt is required"))
		return
	}
	if req.Model == "" {
		writeError(w, r, domain.ErrBadRequest("model is required"))
		return
	}
	if req.Provider == "" {
		req.Provider = "openai"
	}

	doc := g.policies.Snapshot()
	tenant, pol, err := g.authenticate(r, doc)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := g.checkRate(ctx, tenant, pol.EffectiveRateLimit(nil)); err != nil {
		writeError(w, r, err)
		return
	}

	cost := g.estimator.Estimate(req.Prompt)
	if err := g.checkQuota(ctx, tenant, cost, pol.EffectiveQuota(nil)); err != nil {
		writeError(w, r, err)
		return
	}

	prompt := redact.Apply(req.Prompt, pol.PIIPatterns)
	p := g.resolve(req.Provider, pol.Credentials)
	text, err := p.Complete(ctx, req.Model, prompt)
	if err != nil {
		writeError(w, r, domain.ErrUpstream(err.Error()))
		return
	}
	response := redact.Apply(text, pol.PIIPatterns)

	g.emit(tenant, req.Provider, req.Model, prompt, response)
	writeJSON(w, http.StatusOK, map[string]string{
		"tenant":   tenant,
		"provider": req.Provider,
		"model":    req.Model,
		"response": response,
	})
}

type proxyRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

// HandleProxy forwards a caller-supplied request to an absolute URL, still
// gated by the tenant-level rate limit.
func (g *Gateway) HandleProxy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req proxyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.ErrBadRequest("invalid JSON body"))
		return
	}
	if req.Method == "" || req.URL == "" {
		writeError(w, r, domain.ErrBadRequest("method and url are required"))
		return
	}

	doc := g.policies.Snapshot()
	tenant, pol, err := g.authenticate(r, doc)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := g.checkRate(ctx, tenant, pol.EffectiveRateLimit(nil)); err != nil {
		writeError(w, r, err)
		return
	}

	method := strings.ToUpper(req.Method)
	out, err := http.NewRequestWithContext(ctx, method, req.URL, strings.NewReader(req.Body))
	if err != nil {
		writeError(w, r, domain.ErrBadRequest("invalid proxy request"))
		return
	}
	for name, value := range req.Headers {
		out.Header.Set(name, value)
	}

	resp, err := g.forward.Do(out)
	if err != nil {
		writeError(w, r, domain.ErrUpstream(err.Error()))
		return
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		writeError(w, r, domain.ErrUpstream(err.Error()))
		return
	}

	g.emit(tenant, "proxy", req.URL, fmt.Sprintf("%s %s", method, req.URL), preview(body))
	writeJSON(w, http.StatusOK, map[string]any{
		"status_code": resp.StatusCode,
		"headers":     flattenHeader(resp.Header),
		"body":        string(body),
	})
}

// HandleRoute is the generic named-route dispatcher: authenticate, resolve
// the route, check method and rate policy, then branch to an AI call or a
// transparent upstream forward.
func (g *Gateway) HandleRoute(w http.ResponseWriter, r *http.Request) {
	routeName := chi.URLParam(r, "route")
	subpath := chi.URLParam(r, "*")

	doc := g.policies.Snapshot()
	tenant, pol, err := g.authenticate(r, doc)
	if err != nil {
		writeError(w, r, err)
		return
	}

	route, ok := doc.RouteFor(tenant, routeName)
	if !ok {
		writeError(w, r, domain.ErrNotFound("route not found"))
		return
	}

	if !route.MethodAllowed(r.Method) {
		writeError(w, r, domain.ErrMethodNotAllowed("method not allowed for this route"))
		return
	}

	if err := g.checkRate(r.Context(), tenant, pol.EffectiveRateLimit(&route)); err != nil {
		writeError(w, r, err)
		return
	}

	if route.AI {
		g.dispatchAI(w, r, tenant, pol, routeName, route)
		return
	}
	g.dispatchProxy(w, r, tenant, pol, route, subpath)
}

// dispatchAI handles the AI branch of a named route.
func (g *Gateway) dispatchAI(w http.ResponseWriter, r *http.Request, tenant string,
	pol policy.Tenant, routeName string, route policy.Route) {
	ctx := r.Context()

	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Prompt == "" {
		writeError(w, r, domain.ErrBadRequest("ai routes expect a JSON body with a prompt field"))
		return
	}

	prompt := body.Prompt
	if route.Redact {
		prompt = redact.Apply(prompt, pol.PIIPatterns)
	}

	cost := g.estimator.Estimate(prompt)
	if err := g.checkQuota(ctx, tenant, cost, pol.EffectiveQuota(&route)); err != nil {
		writeError(w, r, err)
		return
	}

	providerName := pol.EffectiveProvider(&route)
	p := g.resolve(providerName, pol.Credentials)
	text, err := p.Complete(ctx, route.Model, prompt)
	if err != nil {
		writeError(w, r, domain.ErrUpstream(err.Error()))
		return
	}
	response := redact.Apply(text, pol.PIIPatterns)

	g.emit(tenant, providerName, route.Model, prompt, response)
	writeJSON(w, http.StatusOK, map[string]string{
		"tenant":   tenant,
		"route":    routeName,
		"response": response,
	})
}

// dispatchProxy handles the transparent-forward branch of a named route.
// The upstream response status, headers, and body pass through verbatim.
func (g *Gateway) dispatchProxy(w http.ResponseWriter, r *http.Request, tenant string,
	_ policy.Tenant, route policy.Route, subpath string) {
	ctx := r.Context()

	if route.Upstream == "" {
		writeError(w, r, domain.ErrServer("route misconfigured: missing upstream"))
		return
	}

	target := buildUpstreamURL(route.Upstream, subpath, r.URL.RawQuery)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, domain.ErrBadRequest("failed to read request body"))
		return
	}

	out, err := http.NewRequestWithContext(ctx, r.Method, target, bytes.NewReader(body))
	if err != nil {
		writeError(w, r, domain.ErrServer("route misconfigured: invalid upstream url"))
		return
	}
	out.Header = forwardHeaders(r.Header)

	resp, err := g.forward.Do(out)
	if err != nil {
		writeError(w, r, domain.ErrUpstream(err.Error()))
		return
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		writeError(w, r, domain.ErrUpstream(err.Error()))
		return
	}

	g.emit(tenant, "proxy", target, fmt.Sprintf("%s %s", r.Method, target), preview(respBody))
	writeJSON(w, resp.StatusCode, map[string]any{
		"headers": flattenHeader(resp.Header),
		"body":    string(respBody),
	})
}

// HandleReloadPolicies re-reads the policy document from its configured
// source. The previous document stays active if the reload fails.
func (g *Gateway) HandleReloadPolicies(w http.ResponseWriter, r *http.Request) {
	if err := g.policies.Reload(); err != nil {
		if errors.Is(err, policy.ErrParse) {
			writeError(w, r, domain.ErrBadRequest(err.Error()))
			return
		}
		writeError(w, r, domain.ErrServer("failed to reload policies"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleUpdatePolicies replaces the policy document with the request body,
// persisting it before the swap. A rejected payload leaves the active
// document untouched.
func (g *Gateway) HandleUpdatePolicies(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, domain.ErrBadRequest("failed to read request body"))
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, r, domain.ErrBadRequest("empty body"))
		return
	}

	if err := g.policies.Replace(body); err != nil {
		if errors.Is(err, policy.ErrParse) {
			writeError(w, r, domain.ErrBadRequest(err.Error()))
			return
		}
		writeError(w, r, domain.ErrServer("failed to persist policies"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
