package mocks

//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/jxwng/cvxportfolio/internal/marketdata Provider
//go:generate mockgen -destination=./mock_policy.go -package=mocks github.com/jxwng/cvxportfolio/internal/policy Policy
//go:generate mockgen -destination=./mock_costs.go -package=mocks github.com/jxwng/cvxportfolio/internal/costs Model
//go:generate mockgen -destination=./mock_solver.go -package=mocks github.com/jxwng/cvxportfolio/internal/optimizer Solver
