package core

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nspcc-dev/aioracle/pkg/config"
	"github.com/nspcc-dev/aioracle/pkg/core/dao"
	"github.com/nspcc-dev/aioracle/pkg/core/interop"
	"github.com/nspcc-dev/aioracle/pkg/core/oracle"
	"github.com/nspcc-dev/aioracle/pkg/core/paging"
	"github.com/nspcc-dev/aioracle/pkg/core/state"
	"github.com/nspcc-dev/aioracle/pkg/core/storage"
	"github.com/nspcc-dev/aioracle/pkg/core/transaction"
	"github.com/nspcc-dev/aioracle/pkg/crypto/keys"
	"github.com/nspcc-dev/aioracle/pkg/util"
	"go.uber.org/zap"
)

// Tuning parameters.
const (
	// eventsChanSize is the size of the buffered channel delivering
	// execution results to the dispatcher.
	eventsChanSize = 16
)

var (
	// ErrAlreadyExists is returned for transactions that are already
	// committed.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidTransaction is returned for transactions failing signature
	// verification.
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// Blockchain represents the oracle ledger. Every committed transaction
// increments its height by one.
type Blockchain struct {
	config config.Oracle

	// addLock serializes writers, lock protects the committed state,
	// readers only see it.
	addLock sync.Mutex
	lock    sync.RWMutex

	// Persistent store, every commit is a single change set.
	store storage.Store
	// dao is a read view of the store, nothing is ever written to it.
	dao *dao.Simple

	// Current height, it's only written under the lock.
	height atomic.Uint64

	oracle *oracle.Oracle
	log    *zap.Logger

	// Subscription management.
	subCh       chan chan<- *state.AppExecResult
	unsubCh     chan chan<- *state.AppExecResult
	events      chan *state.AppExecResult
	stopCh      chan struct{}
	runToExitCh chan struct{}
	isRunning   atomic.Bool
}

// NewBlockchain returns a new blockchain object that will use the
// given Store as its underlying storage. An empty store is initialized
// with the given oracle settings, for a non-empty one they're ignored.
func NewBlockchain(s storage.Store, cfg config.Oracle, log *zap.Logger) (*Blockchain, error) {
	if log == nil {
		return nil, errors.New("empty logger")
	}
	bc := &Blockchain{
		config:      cfg,
		store:       s,
		dao:         dao.NewSimple(s),
		oracle:      oracle.New(log),
		log:         log,
		subCh:       make(chan chan<- *state.AppExecResult),
		unsubCh:     make(chan chan<- *state.AppExecResult),
		events:      make(chan *state.AppExecResult, eventsChanSize),
		stopCh:      make(chan struct{}),
		runToExitCh: make(chan struct{}),
	}
	if err := bc.init(); err != nil {
		return nil, err
	}
	return bc, nil
}

func (bc *Blockchain) init() error {
	ver, err := bc.dao.GetVersion()
	if errors.Is(err, dao.ErrNotInitialized) {
		return bc.initGenesis()
	}
	if err != nil {
		return fmt.Errorf("failed to read version: %w", err)
	}
	if ver != dao.Version {
		return fmt.Errorf("storage version mismatch (expected=%s, actual=%s)", dao.Version, ver)
	}
	h, err := bc.dao.GetCurrentHeight()
	if err != nil {
		return fmt.Errorf("failed to read height: %w", err)
	}
	bc.height.Store(h)
	bc.log.Info("restoring blockchain", zap.String("version", ver), zap.Uint64("height", h))
	bc.updateMetrics(bc.dao)
	return nil
}

func (bc *Blockchain) initGenesis() error {
	bc.log.Info("no storage version found! creating genesis state")
	owner, err := bc.config.OwnerHash()
	if err != nil {
		return err
	}
	executors, err := bc.config.ExecutorKeys()
	if err != nil {
		return err
	}
	d := dao.NewSimple(bc.store)
	err = bc.oracle.Initialize(d, oracle.Genesis{
		Owner:           owner,
		Executors:       executors,
		MaxReqThreshold: bc.config.MaxReqThreshold,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize oracle: %w", err)
	}
	d.PutCurrentHeight(0)
	d.PutVersion(dao.Version)
	if _, err := d.Persist(); err != nil {
		return fmt.Errorf("failed to persist genesis state: %w", err)
	}
	bc.updateMetrics(bc.dao)
	return nil
}

// Run runs the notification dispatcher, it's only needed for subscriptions.
func (bc *Blockchain) Run() {
	if bc.isRunning.Swap(true) {
		return
	}
	go bc.notificationDispatcher()
}

// Close stops the dispatcher (if running) and closes the underlying store.
func (bc *Blockchain) Close() {
	if bc.isRunning.CompareAndSwap(true, false) {
		close(bc.stopCh)
		<-bc.runToExitCh
	}
	bc.lock.Lock()
	err := bc.store.Close()
	bc.lock.Unlock()
	if err != nil {
		bc.log.Error("failed to close db", zap.Error(err))
	}
}

// notificationDispatcher manages subscription to events and broadcasts new
// events.
func (bc *Blockchain) notificationDispatcher() {
	// A set of subscribers, modelled as a map for ease of management.
	feed := make(map[chan<- *state.AppExecResult]bool)
	for {
		select {
		case <-bc.stopCh:
			close(bc.runToExitCh)
			return
		case sub := <-bc.subCh:
			feed[sub] = true
		case unsub := <-bc.unsubCh:
			delete(feed, unsub)
		case aer := <-bc.events:
			for ch := range feed {
				ch <- aer
			}
		}
	}
}

// SubscribeForExecutions adds the given channel to the execution results
// broadcast. Results are only delivered when the dispatcher is running,
// the channel must be read from constantly.
func (bc *Blockchain) SubscribeForExecutions(ch chan<- *state.AppExecResult) {
	if bc.isRunning.Load() {
		select {
		case bc.subCh <- ch:
		case <-bc.stopCh:
		}
	}
}

// UnsubscribeFromExecutions unsubscribes the given channel, it can be
// closed afterwards. Passing a non-subscribed channel is a no-op.
func (bc *Blockchain) UnsubscribeFromExecutions(ch chan<- *state.AppExecResult) {
	if bc.isRunning.Load() {
		select {
		case bc.unsubCh <- ch:
		case <-bc.stopCh:
		}
	}
}

// AddTransaction verifies and executes the transaction. The state is only
// changed if the command succeeds, the result of the execution is returned.
// A transaction with a failing command is recorded as FAULTed, so it's
// rejected as already existing if sent again.
func (bc *Blockchain) AddTransaction(tx *transaction.Transaction) (*state.AppExecResult, error) {
	if tx.Command == nil {
		return nil, fmt.Errorf("%w: no command", ErrInvalidTransaction)
	}
	cmd := tx.Command.Type().String()
	if err := tx.Verify(); err != nil {
		addTxMetric(cmd, false)
		return nil, fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}

	bc.addLock.Lock()
	defer bc.addLock.Unlock()

	aer, err := bc.storeTransaction(tx, cmd)
	if err != nil {
		addTxMetric(cmd, false)
		return nil, err
	}
	addTxMetric(cmd, true)

	// Readers are not blocked by slow subscribers, addLock keeps the
	// events ordered.
	if bc.isRunning.Load() {
		select {
		case bc.events <- aer:
		case <-bc.stopCh:
		}
	}
	return aer, nil
}

// storeTransaction executes the command and persists its changes along with
// the execution result.
func (bc *Blockchain) storeTransaction(tx *transaction.Transaction, cmd string) (*state.AppExecResult, error) {
	bc.lock.Lock()
	defer bc.lock.Unlock()

	h := tx.Hash()
	d := dao.NewSimple(bc.store)
	if d.HasTransaction(h) {
		return nil, fmt.Errorf("transaction %s: %w", h, ErrAlreadyExists)
	}
	height := bc.height.Load() + 1
	ic := interop.NewContext(d, tx.SenderHash(), height, bc.log)
	if err := bc.oracle.Execute(ic, tx.Command); err != nil {
		bc.storeFault(h, err)
		return nil, err
	}
	aer := &state.AppExecResult{
		Container: h,
		Height:    height,
		State:     state.Halt,
		Events:    ic.Notifications,
	}
	if err := d.StoreAsTransaction(aer); err != nil {
		return nil, err
	}
	d.PutCurrentHeight(height)
	if _, err := d.Persist(); err != nil {
		return nil, fmt.Errorf("failed to persist transaction: %w", err)
	}
	bc.height.Store(height)
	updateHeightMetric(height)
	bc.updateMetrics(bc.dao)
	bc.log.Debug("transaction committed",
		zap.Stringer("hash", h),
		zap.String("command", cmd),
		zap.Uint64("height", height))
	return aer, nil
}

// storeFault records the failed transaction with the current height, the
// oracle state and the height are not changed. It must be called with the
// lock held.
func (bc *Blockchain) storeFault(h util.Uint256, execErr error) {
	msg := execErr.Error()
	if len(msg) > state.MaxExceptionLen {
		msg = msg[:state.MaxExceptionLen]
	}
	d := dao.NewSimple(bc.store)
	err := d.StoreAsTransaction(&state.AppExecResult{
		Container:      h,
		Height:         bc.height.Load(),
		State:          state.Fault,
		FaultException: msg,
		Events:         []state.NotificationEvent{},
	})
	if err == nil {
		_, err = d.Persist()
	}
	if err != nil {
		bc.log.Warn("failed to store faulted transaction", zap.Stringer("hash", h), zap.Error(err))
		return
	}
	bc.log.Debug("transaction faulted", zap.Stringer("hash", h), zap.Error(execErr))
}

func (bc *Blockchain) updateMetrics(d *dao.Simple) {
	stage, err := d.GetLatestStage()
	if err != nil {
		bc.log.Warn("failed to get latest stage", zap.Error(err))
		return
	}
	updateOracleMetrics(stage, d.CountActiveExecutors())
	updateHeightMetric(bc.height.Load())
}

// BlockHeight returns the number of committed transactions.
func (bc *Blockchain) BlockHeight() uint64 {
	return bc.height.Load()
}

// HasTransaction checks whether the transaction is known, both committed and
// faulted transactions are.
func (bc *Blockchain) HasTransaction(h util.Uint256) bool {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return bc.dao.HasTransaction(h)
}

// GetAppExecResult returns the execution result of the known transaction.
func (bc *Blockchain) GetAppExecResult(h util.Uint256) (*state.AppExecResult, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return bc.dao.GetAppExecResult(h)
}

// GetConfig returns the current oracle configuration.
func (bc *Blockchain) GetConfig() (*state.Config, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return oracle.GetConfig(bc.dao)
}

// GetExecutors lists executors ordered by public key, see
// oracle.GetExecutors.
func (bc *Blockchain) GetExecutors(start, end *keys.PublicKey, order paging.Order, limit int) ([]*state.Executor, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return oracle.GetExecutors(bc.dao, start, end, order, limit)
}

// GetExecutorsByIndex lists executors ordered by insertion index.
func (bc *Blockchain) GetExecutorsByIndex(p oracle.Page) ([]*state.Executor, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return oracle.GetExecutorsByIndex(bc.dao, p)
}

// GetExecutor returns the executor record.
func (bc *Blockchain) GetExecutor(pub *keys.PublicKey) (*state.Executor, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return oracle.GetExecutor(bc.dao, pub)
}

// GetExecutorSize returns the number of active executors.
func (bc *Blockchain) GetExecutorSize() uint64 {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return oracle.GetExecutorSize(bc.dao)
}

// CheckExecutorInList tells whether the key belongs to an active executor.
func (bc *Blockchain) CheckExecutorInList(pub *keys.PublicKey) bool {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return oracle.CheckExecutorInList(bc.dao, pub)
}

// GetRequest returns the request with the given stage.
func (bc *Blockchain) GetRequest(stage uint64) (*state.Request, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return oracle.GetRequest(bc.dao, stage)
}

// GetRequests lists requests ordered by stage.
func (bc *Blockchain) GetRequests(p oracle.Page) ([]*state.Request, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return oracle.GetRequests(bc.dao, p)
}

// GetRequestsByService lists requests of the service.
func (bc *Blockchain) GetRequestsByService(service string, p oracle.Page) ([]*state.Request, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return oracle.GetRequestsByService(bc.dao, service, p)
}

// GetRequestsByMerkleRoot lists requests with the given merkle root.
func (bc *Blockchain) GetRequestsByMerkleRoot(root string, p oracle.Page) ([]*state.Request, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return oracle.GetRequestsByMerkleRoot(bc.dao, root, p)
}

// GetRequestsByRequester lists requests made by the account.
func (bc *Blockchain) GetRequestsByRequester(requester util.Uint160, p oracle.Page) ([]*state.Request, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return oracle.GetRequestsByRequester(bc.dao, requester, p)
}

// GetLatestStage returns the stage of the latest request.
func (bc *Blockchain) GetLatestStage() (uint64, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return oracle.GetLatestStage(bc.dao)
}

// VerifyData checks the merkle proof of data against the root registered
// for the stage.
func (bc *Blockchain) VerifyData(stage uint64, data []byte, proof []string) (bool, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return oracle.VerifyData(bc.dao, stage, data, proof)
}
