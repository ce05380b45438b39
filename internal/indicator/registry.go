package indicator

import (
	"regexp"
	"slices"
	"strconv"
	"sync"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// IndicatorRegistry manages all available indicators.
type IndicatorRegistry interface {
	RegisterIndicator(indicator Indicator) error
	GetIndicator(name string) (Indicator, error)
	ListIndicators() []string
	RemoveIndicator(name string) error
}

// IndicatorRegistryV1 manages all available indicators. Names that are not registered
// explicitly are resolved from the naming convention: sma_N, sma_vol_N, ema_N, rsi_N,
// atr_N, macd_line/macd_signal/macd_hist and bb_upper/bb_middle/bb_lower.
type IndicatorRegistryV1 struct {
	indicators map[string]Indicator
	mu         sync.RWMutex
}

var periodicPattern = regexp.MustCompile(`^(sma_vol|sma|ema|rsi|atr)_([0-9]+)$`)

// NewIndicatorRegistry creates a new indicator registry.
func NewIndicatorRegistry() IndicatorRegistry {
	return &IndicatorRegistryV1{
		indicators: make(map[string]Indicator),
		mu:         sync.RWMutex{},
	}
}

// RegisterIndicator adds an indicator to the registry.
func (r *IndicatorRegistryV1) RegisterIndicator(indicator Indicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := indicator.Name()
	if _, exists := r.indicators[name]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator with name %s already registered", name)
	}

	r.indicators[name] = indicator

	return nil
}

// GetIndicator retrieves an indicator by name, falling back to the naming convention.
func (r *IndicatorRegistryV1) GetIndicator(name string) (Indicator, error) {
	r.mu.RLock()
	indicator, exists := r.indicators[name]
	r.mu.RUnlock()

	if exists {
		return indicator, nil
	}

	indicator, ok := parseIndicatorName(name)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator with name %s not found", name)
	}

	return indicator, nil
}

// ListIndicators returns the sorted names of all registered indicators.
func (r *IndicatorRegistryV1) ListIndicators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.indicators))
	for name := range r.indicators {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// RemoveIndicator removes an indicator from the registry.
func (r *IndicatorRegistryV1) RemoveIndicator(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.indicators[name]; !exists {
		return errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator with name %s not found", name)
	}

	delete(r.indicators, name)

	return nil
}

func parseIndicatorName(name string) (Indicator, bool) {
	switch name {
	case MACDLine, MACDSignal, MACDHistogram:
		return NewMACD(name), true
	case BollingerUpper, BollingerMiddle, BollingerLower:
		return NewBollingerBands(name), true
	}

	match := periodicPattern.FindStringSubmatch(name)
	if match == nil {
		return nil, false
	}

	period, err := strconv.Atoi(match[2])
	if err != nil || period <= 0 {
		return nil, false
	}

	switch match[1] {
	case "sma":
		return NewSMA(period), true
	case "sma_vol":
		return NewVolumeSMA(period), true
	case "ema":
		return NewEMA(period), true
	case "rsi":
		return NewRSI(period), true
	case "atr":
		return NewATR(period), true
	}

	return nil, false
}
