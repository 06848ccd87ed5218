package mq

import (
	"strings"
	"testing"
	"time"
)

func TestQueueArgs(t *testing.T) {
	args := QueueArgs(5*time.Minute, DeadLetterQueue("scraper"))

	if args["x-dead-letter-exchange"] != ExchangeDLQ {
		t.Errorf("unexpected dead letter exchange %v", args["x-dead-letter-exchange"])
	}
	if args["x-dead-letter-routing-key"] != "scraper.dlq" {
		t.Errorf("unexpected dead letter routing key %v", args["x-dead-letter-routing-key"])
	}
	if args["x-consumer-timeout"] != int64(300000) {
		t.Errorf("unexpected consumer timeout %v", args["x-consumer-timeout"])
	}
}

func TestQueueArgs_NoTimeout(t *testing.T) {
	args := QueueArgs(0, "q.dlq")
	if _, ok := args["x-consumer-timeout"]; ok {
		t.Error("consumer timeout should be omitted when not set")
	}
}

func TestTopologyInfo(t *testing.T) {
	info := TopologyInfo("scraper")
	for _, want := range []string{ExchangeTasks, ExchangeDLQ, "scraper.dlq"} {
		if !strings.Contains(info, want) {
			t.Errorf("topology info misses %q:\n%s", want, info)
		}
	}
}
