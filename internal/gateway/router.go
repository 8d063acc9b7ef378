package gateway

import "encoding/json"

// HandlerFunc serves one req frame. It is responsible for writing
// exactly one res frame for id (via Client.sendOK/sendErr) — directly,
// or after first emitting zero or more event frames. chat.send uses the
// latter form: it must defer its response until the agent turn ends,
// giving res.ok=true only once the turn finishes.
type HandlerFunc func(c *Client, id string, params json.RawMessage)

// MethodRouter dispatches req frames by method name, each registered
// against a handler keyed by method name.
type MethodRouter struct {
	handlers map[string]HandlerFunc
}

func NewMethodRouter() *MethodRouter {
	r := &MethodRouter{handlers: make(map[string]HandlerFunc)}
	r.Register("chat.send", handleChatSend)
	r.Register("session.create", handleSessionCreate)
	r.Register("session.list", handleSessionList)
	r.Register("session.get", handleSessionGet)
	r.Register("tool.approve", handleToolApprove)
	r.Register("turn.resume", handleTurnResume)
	r.Register("cron.add", handleCronAdd)
	r.Register("cron.remove", handleCronRemove)
	r.Register("cron.list", handleCronList)
	r.Register("device.pair", handleDevicePair)
	r.Register("health.status", handleHealthStatus)
	return r
}

func (r *MethodRouter) Register(method string, h HandlerFunc) {
	r.handlers[method] = h
}

func (r *MethodRouter) Lookup(method string) (HandlerFunc, bool) {
	h, ok := r.handlers[method]
	return h, ok
}
