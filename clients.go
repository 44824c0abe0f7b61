package offlinecache

import (
	"context"
	"net"
	"net/http"

	"github.com/google/uuid"
)

type clientKey struct{}

// client is one connection to the host. Its controller is fixed when it
// connects and only changes when the active worker claims it.
type client struct {
	id         string
	controller *generation
}

// ConnContext registers a new client. Set it as http.Server.ConnContext.
func (o *OfflineCache) ConnContext(ctx context.Context, c net.Conn) context.Context {
	o.mu.Lock()
	cl := &client{
		id:         uuid.NewString(),
		controller: o.active,
	}
	o.clients[c] = cl
	o.mu.Unlock()
	o.log.Trace().Str("client", cl.id).Msg("Client connected")
	return context.WithValue(ctx, clientKey{}, cl)
}

// ConnState forgets closed clients. Set it as http.Server.ConnState.
func (o *OfflineCache) ConnState(c net.Conn, state http.ConnState) {
	if state != http.StateClosed && state != http.StateHijacked {
		return
	}
	o.mu.Lock()
	delete(o.clients, c)
	o.mu.Unlock()
}

// controllerFor returns the worker controlling the client of ctx.
// Requests not tied to a registered client are controlled by the active worker.
func (o *OfflineCache) controllerFor(ctx context.Context) (*generation, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	cl, ok := ctx.Value(clientKey{}).(*client)
	if !ok {
		return o.active, ""
	}
	if o.claimed != nil && o.claimed == o.active {
		cl.controller = o.active
	}
	return cl.controller, cl.id
}
