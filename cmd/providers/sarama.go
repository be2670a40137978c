package providers

import (
	"context"
	"os"

	"github.com/Shopify/sarama"
	"github.com/pelletier/go-toml"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.yametee.shop/jobs/pkg/relay"
)

// Kafka config keys.
const (
	ConfSaramaAddrs         = "sarama.addrs"
	ConfSaramaConfigFile    = "sarama.config_file"
	ConfRelayEmailTopic     = "relay.email_topic"
	ConfRelayWebhookTopic   = "relay.webhook_topic"
	ConfBridgeTopic         = "bridge.topic"
	ConfBridgeConsumerGroup = "bridge.consumer_group"
)

func init() {
	viper.SetDefault(ConfSaramaAddrs, []string{})
	viper.SetDefault(ConfSaramaConfigFile, "")
	viper.SetDefault(ConfRelayEmailTopic, "yametee.emails")
	viper.SetDefault(ConfRelayWebhookTopic, "yametee.webhooks")
	viper.SetDefault(ConfBridgeTopic, "yametee.jobs")
	viper.SetDefault(ConfBridgeConsumerGroup, "yametee-jobs-bridge")
}

// NewSaramaConfig reads the sarama config from a TOML file, if one is configured.
func NewSaramaConfig(log *zap.Logger) (*sarama.Config, error) {
	config := sarama.NewConfig()
	// Since sarama has so many options, it's easiest to read in a file.
	configFilePath := viper.GetString(ConfSaramaConfigFile)
	if configFilePath != "" {
		log.Info("Reading sarama config",
			zap.String(ConfSaramaConfigFile, configFilePath))
		f, err := os.Open(configFilePath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		dec := toml.NewDecoder(f)
		if err := dec.Decode(config); err != nil {
			return nil, err
		}
	}
	config.Producer.Return.Successes = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Offsets.AutoCommit.Enable = false
	return config, nil
}

// NewSaramaClient connects to the configured Kafka brokers.
func NewSaramaClient(lc fx.Lifecycle, log *zap.Logger, config *sarama.Config) (sarama.Client, error) {
	addrs := viper.GetStringSlice(ConfSaramaAddrs)
	log.Info("Connecting to Kafka (sarama)",
		zap.Strings(ConfSaramaAddrs, addrs))
	client, err := sarama.NewClient(addrs, config)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("Closing Kafka client")
			return client.Close()
		},
	})
	return client, nil
}

// NewSaramaConsumerGroup joins the consumer group of the Kafka bridge.
func NewSaramaConsumerGroup(
	lc fx.Lifecycle,
	log *zap.Logger,
	cl sarama.Client,
) (sarama.ConsumerGroup, error) {
	consumerGroupName := viper.GetString(ConfBridgeConsumerGroup)
	log.Info("Binding to Kafka consumer group",
		zap.String("kafka.consumer_group", consumerGroupName))
	consumerGroup, err := sarama.NewConsumerGroupFromClient(consumerGroupName, cl)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("Closing Kafka consumer group client")
			return consumerGroup.Close()
		},
	})
	return consumerGroup, nil
}

// NewRelayPublisher returns a Kafka publisher for emails and webhook events,
// or nil if no Kafka brokers are configured.
func NewRelayPublisher(
	lc fx.Lifecycle,
	log *zap.Logger,
	config *sarama.Config,
) (*relay.Publisher, error) {
	if len(viper.GetStringSlice(ConfSaramaAddrs)) == 0 {
		return nil, nil
	}
	client, err := NewSaramaClient(lc, log, config)
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("Closing Kafka producer")
			return producer.Close()
		},
	})
	return &relay.Publisher{
		Producer:     producer,
		EmailTopic:   viper.GetString(ConfRelayEmailTopic),
		WebhookTopic: viper.GetString(ConfRelayWebhookTopic),
	}, nil
}
