package mqtt

import "fmt"

func metricTopic(prefix string) string { return fmt.Sprintf("%s/metric", prefix) }
func rntiTopic(prefix string) string   { return fmt.Sprintf("%s/rnti", prefix) }
func eventTopic(prefix string) string  { return fmt.Sprintf("%s/event", prefix) }
func workerTopic(prefix string) string { return fmt.Sprintf("%s/worker", prefix) }
