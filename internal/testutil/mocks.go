// Package testutil provides mock implementations for the collaborator
// interfaces of the atlas-reporter core library (pkg/report and subpackages).
// Configure expectations using testify/mock methods, e.g.
// .On("RenderPage", ...).Return(...).
package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/autoatlas/atlas-reporter/pkg/report"
	"github.com/autoatlas/atlas-reporter/pkg/report/render"
)

// MockRenderer provides a mock implementation of the render.PageRenderer
// interface.
type MockRenderer struct {
	mock.Mock
}

// RenderPage mocks the RenderPage method.
func (m *MockRenderer) RenderPage(ctx context.Context, req render.PageRequest) (path string, err error) {
	args := m.Called(ctx, req)
	path, _ = args.Get(0).(string)
	err = args.Error(1)
	return
}

// MockHooks provides a mock implementation of the report.Hooks interface.
type MockHooks struct {
	mock.Mock
}

// OnBatchStart mocks the OnBatchStart method.
func (m *MockHooks) OnBatchStart(total int) error {
	args := m.Called(total)
	return args.Error(0)
}

// OnRecordStatusUpdate mocks the OnRecordStatusUpdate method.
func (m *MockHooks) OnRecordStatusUpdate(index, total int, name string, status report.Status, message string) error {
	args := m.Called(index, total, name, status, message)
	return args.Error(0)
}

// OnRunComplete mocks the OnRunComplete method.
func (m *MockHooks) OnRunComplete(rep report.Report) error {
	args := m.Called(rep)
	return args.Error(0)
}

// MockJanitor provides a mock implementation of the report.Janitor interface.
type MockJanitor struct {
	mock.Mock
}

// Collect mocks the Collect method.
func (m *MockJanitor) Collect() {
	m.Called()
}

// MockBasemap provides a mock implementation of the render.Basemap interface.
type MockBasemap struct {
	mock.Mock
}

// Kind mocks the Kind method.
func (m *MockBasemap) Kind() render.BasemapKind {
	args := m.Called()
	kind, _ := args.Get(0).(render.BasemapKind)
	return kind
}

// TileURL mocks the TileURL method.
func (m *MockBasemap) TileURL() string {
	args := m.Called()
	url, _ := args.Get(0).(string)
	return url
}

// Attribution mocks the Attribution method.
func (m *MockBasemap) Attribution() string {
	args := m.Called()
	attr, _ := args.Get(0).(string)
	return attr
}

// Close mocks the Close method.
func (m *MockBasemap) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockBasemapProvider provides a mock implementation of the
// render.BasemapProvider interface.
type MockBasemapProvider struct {
	mock.Mock
}

// Acquire mocks the Acquire method.
func (m *MockBasemapProvider) Acquire(kind render.BasemapKind) (b render.Basemap, err error) {
	args := m.Called(kind)
	b, _ = args.Get(0).(render.Basemap)
	err = args.Error(1)
	return
}
