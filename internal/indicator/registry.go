package indicator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/droughtwatch/cdi-etl/internal/domain"
)

// Factory builds an indicator bound to one analysis request.
type Factory func(settings Settings, args domain.AnalysisArgs, deps Deps) Indicator

var registry = map[string]Factory{
	"SPI":   NewSPI,
	"SMA":   NewSMA,
	"FAPAR": NewFAPAR,
	"CDI":   NewCDI,
}

// New constructs the indicator named by args.Product. Product names are
// matched case-insensitively; an unregistered name fails with
// domain.ErrUnknownProduct.
func New(settings Settings, args domain.AnalysisArgs, deps Deps) (Indicator, error) {
	factory, ok := registry[strings.ToUpper(args.Product)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProduct, args.Product)
	}
	return factory(settings, args, deps), nil
}

// Products lists the registered product names in stable order.
func Products() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
