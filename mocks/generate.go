package mocks

//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource DataSource
//go:generate mockgen -destination=./mock_run_store.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/store RunStore
//go:generate mockgen -destination=./mock_commission_fee.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/backtest/simulator/commission_fee CommissionFee
//go:generate mockgen -destination=./mock_indicator.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/indicator Indicator
