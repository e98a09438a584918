package rabbitmq

// Exchange — direct-exchange для уведомлений.
const Exchange = "notifications"

// QueueConfig описывает очередь и ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// EmailQueue — очередь писем, которую разбирает воркер рассылки.
var EmailQueue = QueueConfig{QueueName: "notifications.email", RoutingKey: "email"}

// NotificationQueues возвращает все очереди, которые объявляются при старте.
func NotificationQueues() []QueueConfig {
	return []QueueConfig{EmailQueue}
}
