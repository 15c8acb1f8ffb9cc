package shared

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ServiceMetrics tracks run counts, timings and custom counters for a service
type ServiceMetrics struct {
	ServiceName           string                 `json:"service_name"`
	TotalRequests         int64                  `json:"total_requests"`
	SuccessfulRequests    int64                  `json:"successful_requests"`
	FailedRequests        int64                  `json:"failed_requests"`
	TotalProcessingTime   time.Duration          `json:"total_processing_time"`
	AverageProcessingTime time.Duration          `json:"average_processing_time"`
	MaxProcessingTime     time.Duration          `json:"max_processing_time"`
	P95ProcessingTime     time.Duration          `json:"p95_processing_time"`
	LastUpdated           time.Time              `json:"last_updated"`
	CustomMetrics         map[string]interface{} `json:"custom_metrics"`
	mutex                 sync.RWMutex
	processingTimes       []time.Duration
}

const maxProcessingSamples = 1000

// NewServiceMetrics creates a new metrics tracker for a service
func NewServiceMetrics(serviceName string) *ServiceMetrics {
	return &ServiceMetrics{
		ServiceName:     serviceName,
		LastUpdated:     time.Now(),
		CustomMetrics:   make(map[string]interface{}),
		processingTimes: make([]time.Duration, 0, 64),
	}
}

// RecordRequest records a request with its success status and processing time
func (m *ServiceMetrics) RecordRequest(success bool, processingTime time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.TotalRequests++
	m.TotalProcessingTime += processingTime
	m.AverageProcessingTime = time.Duration(int64(m.TotalProcessingTime) / m.TotalRequests)
	if processingTime > m.MaxProcessingTime {
		m.MaxProcessingTime = processingTime
	}

	if success {
		m.SuccessfulRequests++
	} else {
		m.FailedRequests++
	}

	if len(m.processingTimes) >= maxProcessingSamples {
		m.processingTimes = m.processingTimes[1:]
	}
	m.processingTimes = append(m.processingTimes, processingTime)
	m.P95ProcessingTime = percentile(m.processingTimes, 0.95)

	m.LastUpdated = time.Now()
}

func percentile(samples []time.Duration, p float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

// GetSuccessRate returns the success rate as a percentage
func (m *ServiceMetrics) GetSuccessRate() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.TotalRequests == 0 {
		return 0.0
	}

	return float64(m.SuccessfulRequests) / float64(m.TotalRequests) * 100.0
}

// SetCustomMetric sets a custom metric value
func (m *ServiceMetrics) SetCustomMetric(key string, value interface{}) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.CustomMetrics[key] = value
	m.LastUpdated = time.Now()
}

// AddToCustomCounter adds delta to a custom counter metric
func (m *ServiceMetrics) AddToCustomCounter(key string, delta int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if counter, ok := m.CustomMetrics[key].(int64); ok {
		m.CustomMetrics[key] = counter + delta
	} else {
		m.CustomMetrics[key] = delta
	}

	m.LastUpdated = time.Now()
}

// IncrementCustomCounter increments a custom counter metric
func (m *ServiceMetrics) IncrementCustomCounter(key string) {
	m.AddToCustomCounter(key, 1)
}

// GetCustomCounter returns a custom counter, or zero when unset
func (m *ServiceMetrics) GetCustomCounter(key string) int64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	counter, _ := m.CustomMetrics[key].(int64)
	return counter
}

// MetricsSnapshot is a lock-free copy of ServiceMetrics
type MetricsSnapshot struct {
	ServiceName           string                 `json:"service_name"`
	TotalRequests         int64                  `json:"total_requests"`
	SuccessfulRequests    int64                  `json:"successful_requests"`
	FailedRequests        int64                  `json:"failed_requests"`
	AverageProcessingTime time.Duration          `json:"average_processing_time"`
	MaxProcessingTime     time.Duration          `json:"max_processing_time"`
	P95ProcessingTime     time.Duration          `json:"p95_processing_time"`
	LastUpdated           time.Time              `json:"last_updated"`
	CustomMetrics         map[string]interface{} `json:"custom_metrics"`
}

// GetSnapshot returns a thread-safe snapshot of current metrics
func (m *ServiceMetrics) GetSnapshot() MetricsSnapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	customMetricsCopy := make(map[string]interface{}, len(m.CustomMetrics))
	for k, v := range m.CustomMetrics {
		customMetricsCopy[k] = v
	}

	return MetricsSnapshot{
		ServiceName:           m.ServiceName,
		TotalRequests:         m.TotalRequests,
		SuccessfulRequests:    m.SuccessfulRequests,
		FailedRequests:        m.FailedRequests,
		AverageProcessingTime: m.AverageProcessingTime,
		MaxProcessingTime:     m.MaxProcessingTime,
		P95ProcessingTime:     m.P95ProcessingTime,
		LastUpdated:           m.LastUpdated,
		CustomMetrics:         customMetricsCopy,
	}
}

// LogSummary logs a comprehensive metrics summary
func (m *ServiceMetrics) LogSummary() {
	snapshot := m.GetSnapshot()

	logrus.WithFields(logrus.Fields{
		"service_name":            snapshot.ServiceName,
		"total_requests":          snapshot.TotalRequests,
		"successful_requests":     snapshot.SuccessfulRequests,
		"failed_requests":         snapshot.FailedRequests,
		"success_rate":            m.GetSuccessRate(),
		"average_processing_time": snapshot.AverageProcessingTime,
		"max_processing_time":     snapshot.MaxProcessingTime,
		"p95_processing_time":     snapshot.P95ProcessingTime,
		"custom_metrics":          snapshot.CustomMetrics,
	}).Info("Service metrics summary")
}

// Reset resets all metrics to zero
func (m *ServiceMetrics) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.TotalRequests = 0
	m.SuccessfulRequests = 0
	m.FailedRequests = 0
	m.TotalProcessingTime = 0
	m.AverageProcessingTime = 0
	m.MaxProcessingTime = 0
	m.P95ProcessingTime = 0
	m.LastUpdated = time.Now()
	m.CustomMetrics = make(map[string]interface{})
	m.processingTimes = m.processingTimes[:0]

	logrus.WithField("service_name", m.ServiceName).Info("Service metrics reset")
}
