package geo

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// CenterSummary is the payload published for a region after its center is
// recomputed.
type CenterSummary struct {
	RegionID      string  `json:"regionId"`
	CenterLat     float64 `json:"centerLat"`
	CenterLng     float64 `json:"centerLng"`
	Metric        Metric  `json:"metric"`
	SiteCount     int     `json:"siteCount"`
	MinDistance   float64 `json:"minDistanceKm"`
	MaxDistance   float64 `json:"maxDistanceKm"`
	AvgDistance   float64 `json:"avgDistanceKm"`
	TotalDistance float64 `json:"totalDistanceKm"`
	RadiusKm      float64 `json:"radiusKm"`
	Timestamp     int64   `json:"timestamp"`
}

// Publisher manages publishing recomputed region centers to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	summaries     map[string]*CenterSummary
	mu            sync.RWMutex
}

// NewPublisher creates a new center publisher
// If client is nil, publishing is disabled (for testing)
func NewPublisher(client mqtt.Client) *Publisher {
	prefix := os.Getenv("MQTT_PUBLISH_PREFIX")
	if prefix == "" {
		prefix = "geoffice"
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,    // QoS 0, a newer center always supersedes
		retain:        true, // Retain so late subscribers get the latest center
		summaries:     make(map[string]*CenterSummary),
	}
}

// PublishCenter publishes a region's recomputed center to MQTT
// Publishes to both the region topic and the combined centers topic
func (p *Publisher) PublishCenter(regionID string, result *CenterResult, siteCount int, radiusKm float64) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	summary := &CenterSummary{
		RegionID:      regionID,
		CenterLat:     result.CenterLat,
		CenterLng:     result.CenterLng,
		Metric:        result.Metric,
		SiteCount:     siteCount,
		MinDistance:   result.MinDistance,
		MaxDistance:   result.MaxDistance,
		AvgDistance:   result.AvgDistance,
		TotalDistance: result.TotalDistance,
		RadiusKm:      radiusKm,
		Timestamp:     time.Now().Unix(),
	}

	// Store summary for the combined message
	p.mu.Lock()
	p.summaries[regionID] = summary
	p.mu.Unlock()

	// Publish to individual topic: geoffice/{regionID}/center
	if err := p.publishIndividual(summary); err != nil {
		log.Printf("Error publishing center for %s: %v", regionID, err)
		return err
	}

	// Publish to combined topic: geoffice/centers
	if err := p.publishCombined(); err != nil {
		log.Printf("Error publishing combined centers: %v", err)
		return err
	}

	return nil
}

// publishIndividual publishes a single region center to its individual topic
func (p *Publisher) publishIndividual(summary *CenterSummary) error {
	topic := fmt.Sprintf("%s/%s/center", p.publishPrefix, summary.RegionID)

	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshaling center summary: %w", err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	log.Printf("Published center for %s: (%.5f, %.5f) avg=%.2fkm over %d sites",
		summary.RegionID, summary.CenterLat, summary.CenterLng, summary.AvgDistance, summary.SiteCount)
	return nil
}

// publishCombined publishes all region centers to the combined topic
func (p *Publisher) publishCombined() error {
	p.mu.RLock()
	summaries := make([]*CenterSummary, 0, len(p.summaries))
	for _, s := range p.summaries {
		summaries = append(summaries, s)
	}
	p.mu.RUnlock()

	if len(summaries) == 0 {
		return nil
	}

	topic := fmt.Sprintf("%s/centers", p.publishPrefix)

	message := map[string]interface{}{
		"regions":   summaries,
		"timestamp": time.Now().Unix(),
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshaling combined centers: %w", err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	return nil
}

// GetSummary returns the last published center for a region
func (p *Publisher) GetSummary(regionID string) (*CenterSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.summaries[regionID]
	return s, ok
}

// GetAllSummaries returns all last published region centers
func (p *Publisher) GetAllSummaries() map[string]*CenterSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	// Return a copy to avoid race conditions
	summaries := make(map[string]*CenterSummary, len(p.summaries))
	for id, s := range p.summaries {
		sCopy := *s
		summaries[id] = &sCopy
	}
	return summaries
}

// ClearSummary removes a region's stored center (e.g., when its feed goes away)
func (p *Publisher) ClearSummary(regionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.summaries, regionID)
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}
