// Package events получает события задач из шины публикации/подписки.
//
// # Обзор
//
// Сервер менеджера публикует ход выполнения задачи в шину: топик
// {correlation_id}.{...}.{severity}, payload — строка лога. Последний
// сегмент топика — уровень (info, warning, error, ...) или маркер
// завершения "finished".
//
// # Ключевые компоненты
//
// ## Feed
//
// Соединение с шиной: ZeroMQ SUB (tcp://, ipc://) или RabbitMQ (amqp://).
// Выбирается функцией Dial по схеме адреса.
//
// ## Subscriber
//
// Один на процесс. Диспетчер читает Feed и раскладывает события по
// подпискам (Stream). Битые сообщения логируются и пропускаются.
//
//	sub := events.NewSubscriber(feed, logger)
//	stream, err := sub.Subscribe(correlationID)
//	defer stream.Close()
//	ev, err := stream.Receive(ctx)
//
// Stream.Close снимает фильтр с шины, поэтому подписки не копятся
// в длинной сессии.
package events
