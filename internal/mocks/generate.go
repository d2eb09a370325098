// Package mocks provides generated mocks for console ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks.
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	records := mocks.NewMockRecordStore(ctrl)
//	records.EXPECT().Get(gomock.Any(), "sess-1").Return(rec, nil)
package mocks

// Generate mock for the console session record store from internal/session.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=record_store_mock.go github.com/opentrusty/console/internal/session RecordStore

// Generate mock for the management API port consumed by the session store.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=api_mock.go github.com/opentrusty/console/internal/session API
