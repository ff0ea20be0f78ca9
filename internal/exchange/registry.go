package exchange

import (
	"github.com/sirupsen/logrus"

	"github.com/avolkov/spreadscan/internal/models"
)

// Constructor builds an adapter from an exchange profile.
type Constructor func(profile *models.ExchangeProfile, logger *logrus.Logger) Adapter

// Registry maps exchange names to adapter constructors. The orchestrator
// resolves adapters through it instead of switching on names inline, so
// tests can register fakes.
type Registry struct {
	constructors map[string]Constructor
	logger       *logrus.Logger
}

// NewRegistry creates a registry pre-populated with the built-in
// adapters.
func NewRegistry(logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	r := &Registry{
		constructors: make(map[string]Constructor),
		logger:       logger,
	}
	r.Register("KuCoin", func(profile *models.ExchangeProfile, logger *logrus.Logger) Adapter {
		return NewKucoinAdapter(profile.APIURL, credentialsFromProfile(profile), logger)
	})
	r.Register("Binance", func(profile *models.ExchangeProfile, logger *logrus.Logger) Adapter {
		return NewBinanceAdapter(profile.APIURL, credentialsFromProfile(profile), logger)
	})
	return r
}

// Register adds or replaces a constructor for the given exchange name.
func (r *Registry) Register(name string, constructor Constructor) {
	r.constructors[name] = constructor
}

// Build resolves the adapter for a profile. Unknown exchange names yield
// a ConfigError.
func (r *Registry) Build(profile *models.ExchangeProfile) (Adapter, error) {
	constructor, ok := r.constructors[profile.Name]
	if !ok {
		return nil, &ConfigError{Exchange: profile.Name, Message: "unknown exchange"}
	}
	return constructor(profile, r.logger), nil
}

// Supported returns the registered exchange names.
func (r *Registry) Supported() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	return names
}

func credentialsFromProfile(profile *models.ExchangeProfile) Credentials {
	return Credentials{
		APIKey:     profile.APIKey,
		APISecret:  profile.APISecret,
		Passphrase: profile.Passphrase,
	}
}
