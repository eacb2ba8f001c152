package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
)

// InProcessDoer sends requests straight into a fiber app without a network
// listener. It satisfies transport.Doer.
type InProcessDoer struct {
	App *fiber.App
}

// Do implements transport.Doer.
func (d InProcessDoer) Do(req *nethttp.Request) (*nethttp.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	return d.App.Test(req, -1)
}
