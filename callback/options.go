package callback

import (
	"github.com/hashicorp/go-hclog"

	"github.com/oidc-kit/implicit"
)

// DefaultRelayParameter is the form/query parameter the relay page uses to
// post the fragment back to the callback.
const DefaultRelayParameter = "fragment"

// fragmentOptions is the set of available options for Fragment
type fragmentOptions struct {
	withLogger    hclog.Logger
	withRelayParm string
}

// fragmentDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func fragmentDefaults() fragmentOptions {
	return fragmentOptions{
		withLogger:    hclog.NewNullLogger(),
		withRelayParm: DefaultRelayParameter,
	}
}

// getFragmentOpts gets the Fragment defaults and applies the opt overrides
// passed in
func getFragmentOpts(opt ...implicit.Option) fragmentOptions {
	opts := fragmentDefaults()
	implicit.ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger for the callback handler.  Without
// it the handler is silent.
func WithLogger(l hclog.Logger) implicit.Option {
	return func(o interface{}) {
		if o, ok := o.(*fragmentOptions); ok {
			o.withLogger = l
		}
	}
}

// WithRelayParameter provides an optional name for the parameter the relay
// page posts the fragment back with.  The default is DefaultRelayParameter.
func WithRelayParameter(name string) implicit.Option {
	return func(o interface{}) {
		if o, ok := o.(*fragmentOptions); ok {
			o.withRelayParm = name
		}
	}
}
