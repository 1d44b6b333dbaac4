package workers

import (
	"context"
	"errors"
	"time"

	"zapdesk/models"
	"zapdesk/services"
	"zapdesk/tools"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// StateSource é a parte do gateway que o reconciliador precisa.
type StateSource interface {
	ConnectionState(ctx context.Context, name string) (tools.Payload, error)
}

// Reconciler consulta o gateway periodicamente e corrige o status local de cada instância.
type Reconciler struct {
	gateway     StateSource
	instances   services.InstanceStore
	concurrency int
	timeout     time.Duration
	sched       *cron.Cron
}

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func NewReconciler(gateway StateSource, instances services.InstanceStore, concurrency int) *Reconciler {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Reconciler{
		gateway:     gateway,
		instances:   instances,
		concurrency: concurrency,
		timeout:     30 * time.Second,
	}
}

// Start agenda a reconciliação; schedule aceita expressões cron ou "@every 5m".
func (r *Reconciler) Start(schedule string) error {
	r.sched = cron.New(cron.WithParser(cronParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := r.sched.AddFunc(schedule, r.runScheduled); err != nil {
		return err
	}
	r.sched.Start()
	zap.S().Infof("reconciler: scheduled %s (concurrency %d)", schedule, r.concurrency)
	return nil
}

// Stop espera a rodada em andamento terminar ou o ctx expirar.
func (r *Reconciler) Stop(ctx context.Context) {
	if r.sched == nil {
		return
	}
	select {
	case <-r.sched.Stop().Done():
	case <-ctx.Done():
		zap.S().Warn("reconciler: stop timed out")
	}
}

func (r *Reconciler) runScheduled() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if _, err := r.RunOnce(ctx); err != nil {
		zap.S().Errorf("reconciler: %v", err)
	}
}

// RunOnce faz uma rodada completa e devolve quantas instâncias foram consultadas com sucesso.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	list, err := r.instances.List()
	if err != nil {
		return 0, err
	}

	results := make([]bool, len(list))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := range list {
		inst := list[i]
		g.Go(func() error {
			results[i] = r.reconcile(gctx, inst)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	checked := 0
	for _, ok := range results {
		if ok {
			checked++
		}
	}
	zap.S().Debugf("reconciler: %d/%d instances checked", checked, len(list))
	return checked, nil
}

func (r *Reconciler) reconcile(ctx context.Context, inst models.Instance) bool {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var status string
	payload, err := r.gateway.ConnectionState(callCtx, inst.Name)
	if err != nil {
		var gwErr *tools.GatewayError
		if !errors.As(err, &gwErr) || !gwErr.IsNotFound() {
			zap.L().Warn("reconciler: gateway state failed",
				zap.String("instance", inst.Name), zap.Error(err))
			return false
		}
		// o gateway esqueceu a instância
		status = models.INSTANCE_STATUS_DISCONNECTED
	} else {
		status = models.StatusFromGatewayState(payload.State())
	}

	if err := r.instances.ApplyStatus(inst.ID, "", status); err != nil && !services.IsNotFound(err) {
		zap.L().Error("reconciler: apply status failed",
			zap.String("instance", inst.Name), zap.Error(err))
		return false
	}
	if inst.Status != status {
		zap.L().Info("reconciler: status converged",
			zap.String("instance", inst.Name), zap.String("from", inst.Status), zap.String("to", status))
	}
	return true
}
