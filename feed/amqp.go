package feed

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	publishTimeout = 5 * time.Second
	publishBuffer  = 1024
	redialBackoff  = 2 * time.Second
)

// session é a parte da conexão AMQP usada para publicar.
type session interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	IsClosed() bool
	Close() error
}

type amqpSession struct {
	conn *amqp091.Connection
	ch   *amqp091.Channel
}

func (s *amqpSession) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	return s.ch.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}

func (s *amqpSession) IsClosed() bool {
	return s.conn.IsClosed() || s.ch.IsClosed()
}

func (s *amqpSession) Close() error {
	_ = s.ch.Close()
	return s.conn.Close()
}

func dialer(url, exchange string) func() (session, error) {
	return func() (session, error) {
		conn, err := amqp091.Dial(url)
		if err != nil {
			return nil, err
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, err
		}
		if err := ch.ExchangeDeclare(
			exchange, "topic", true, false, false, false, nil,
		); err != nil {
			conn.Close()
			return nil, err
		}
		return &amqpSession{conn: conn, ch: ch}, nil
	}
}

// AMQPPublisher publica cada mudança num exchange topic com routing key "<table>.<type>".
// Notify só enfileira: a publicação roda numa goroutine própria, que refaz a conexão
// quando o broker cai. Fila cheia descarta a mudança.
type AMQPPublisher struct {
	exchange string
	dial     func() (session, error)
	queue    chan Change
	done     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup

	// usados só pela goroutine de publicação
	sess       session
	lastFailed time.Time
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	return newAMQPPublisher(exchange, dialer(url, exchange), publishBuffer)
}

// newAMQPPublisher conecta na hora para falhar cedo na subida com broker inacessível.
func newAMQPPublisher(exchange string, dial func() (session, error), buffer int) (*AMQPPublisher, error) {
	sess, err := dial()
	if err != nil {
		return nil, err
	}
	p := &AMQPPublisher{
		exchange: exchange,
		dial:     dial,
		queue:    make(chan Change, buffer),
		done:     make(chan struct{}),
		sess:     sess,
	}
	p.wg.Add(1)
	go p.run()
	return p, nil
}

func RoutingKey(ch Change) string {
	return strings.ToLower(ch.Table + "." + string(ch.Type))
}

func (p *AMQPPublisher) Notify(change Change) {
	select {
	case <-p.done:
		return
	default:
	}
	select {
	case p.queue <- change:
	default:
		zap.L().Warn("feed: amqp queue full, dropping change", zap.String("key", RoutingKey(change)))
	}
}

func (p *AMQPPublisher) run() {
	defer p.wg.Done()
	for {
		select {
		case change := <-p.queue:
			p.publish(change)
		case <-p.done:
			for {
				select {
				case change := <-p.queue:
					p.publish(change)
				default:
					return
				}
			}
		}
	}
}

// connected devolve a sessão atual e reconecta se ela caiu. Entre falhas espera redialBackoff.
func (p *AMQPPublisher) connected() session {
	if p.sess != nil && !p.sess.IsClosed() {
		return p.sess
	}
	if p.sess != nil {
		_ = p.sess.Close()
		p.sess = nil
	}
	if !p.lastFailed.IsZero() && time.Since(p.lastFailed) < redialBackoff {
		return nil
	}
	sess, err := p.dial()
	if err != nil {
		p.lastFailed = time.Now()
		zap.L().Error("feed: amqp redial", zap.Error(err))
		return nil
	}
	p.lastFailed = time.Time{}
	p.sess = sess
	zap.L().Info("feed: amqp reconnected", zap.String("exchange", p.exchange))
	return sess
}

func (p *AMQPPublisher) publish(change Change) {
	body, err := json.Marshal(change)
	if err != nil {
		zap.L().Error("feed: marshal change", zap.Error(err))
		return
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    change.At,
		Body:         body,
	}
	key := RoutingKey(change)

	// segunda tentativa só depois de derrubar a sessão que falhou
	for attempt := 0; attempt < 2; attempt++ {
		sess := p.connected()
		if sess == nil {
			zap.L().Warn("feed: amqp unavailable, dropping change", zap.String("key", key))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err = sess.PublishWithContext(ctx, p.exchange, key, false, false, msg)
		cancel()
		if err == nil {
			return
		}
		zap.L().Error("feed: amqp publish", zap.String("key", key), zap.Int("attempt", attempt+1), zap.Error(err))
		_ = sess.Close()
		p.sess = nil
	}
}

// Close publica o que ainda está na fila e fecha a conexão.
func (p *AMQPPublisher) Close() error {
	p.once.Do(func() { close(p.done) })
	p.wg.Wait()
	if p.sess != nil {
		err := p.sess.Close()
		p.sess = nil
		return err
	}
	return nil
}
