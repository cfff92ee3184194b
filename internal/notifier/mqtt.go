package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"relief-coordinator/internal/config"
	"relief-coordinator/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTNotifier MQTT 推送通道
// 每用户一个主题（TopicPrefix + user_id），移动端按自己的 user_id 订阅
type MQTTNotifier struct {
	client mqtt.Client
	config *config.MQTTConfig
}

// NewMQTTNotifier 创建并连接 MQTT 推送通道
func NewMQTTNotifier(cfg *config.MQTTConfig) (*MQTTNotifier, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTTNotifier{
		client: client,
		config: cfg,
	}, nil
}

// pushPayload 推送消息体
type pushPayload struct {
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// Send 向用户主题发布推送消息
func (n *MQTTNotifier) Send(ctx context.Context, recipient *models.User, subject, body string) error {
	payload, err := json.Marshal(pushPayload{
		Subject: subject,
		Body:    body,
		SentAt:  time.Now(),
	})
	if err != nil {
		return err
	}

	topic := n.config.TopicPrefix + recipient.UserID
	token := n.client.Publish(topic, n.config.QoS, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	return nil
}

// Close 断开 MQTT 连接
func (n *MQTTNotifier) Close() {
	n.client.Disconnect(250)
}
