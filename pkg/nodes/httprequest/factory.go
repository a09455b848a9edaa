package httprequest

import (
	"github.com/autoflowhq/autoflow/pkg/protocol"
)

type HTTPRequestActionFactory struct{}

// nolint:ireturn
func (f *HTTPRequestActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewHTTPRequestAction(config)
}

func (f *HTTPRequestActionFactory) ID() string {
	return "http-request"
}

func (f *HTTPRequestActionFactory) Name() string {
	return "HTTP Request"
}

func (f *HTTPRequestActionFactory) Description() string {
	return "Makes an HTTP request to an external service. The response is available to the following nodes."
}

func (f *HTTPRequestActionFactory) Schema() map[string]any {
	return protocol.ReflectSchema(&Config{})
}

func NewHTTPRequestActionFactory() *HTTPRequestActionFactory {
	return &HTTPRequestActionFactory{}
}
