package task

import (
	"fmt"
	"os"
	"sync/atomic"
)

// IDGenerator выдаёт correlation ID вида {hostname}.{pid}-{counter}.
//
// Счётчик атомарный: генератор можно делить между параллельными задачами.
// ID никогда не повторяется в пределах процесса, пропуски допустимы.
type IDGenerator struct {
	prefix  string
	counter atomic.Uint64
}

// NewIDGenerator создаёт генератор для текущего хоста и процесса.
func NewIDGenerator() *IDGenerator {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return NewIDGeneratorFor(host, os.Getpid())
}

// NewIDGeneratorFor создаёт генератор с явными host и pid.
func NewIDGeneratorFor(host string, pid int) *IDGenerator {
	return &IDGenerator{prefix: fmt.Sprintf("%s.%d", host, pid)}
}

// Next возвращает следующий ID. Первый ID имеет счётчик 0.
func (g *IDGenerator) Next() string {
	n := g.counter.Add(1) - 1
	return fmt.Sprintf("%s-%d", g.prefix, n)
}

// Issued возвращает количество выданных ID.
func (g *IDGenerator) Issued() uint64 {
	return g.counter.Load()
}
