package constant

import "fmt"

const (
	TickStreamName       = "tick"
	TickStreamSubjectAll = "tick.*"
	TickQueueGroup       = "tick_group"
)

func GetTickStreamSubject(exchange string) string {
	return fmt.Sprintf("tick.%s", exchange)
}

func GetTickDistributeQueueGroup(exchange string) string {
	return fmt.Sprintf("%s_%s", TickQueueGroup, exchange)
}
