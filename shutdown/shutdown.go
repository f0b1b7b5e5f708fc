package shutdown

import (
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/flanksource/commons/logger"
)

// Lower priorities run first: stop taking traffic before closing what it depends on.
const (
	PriorityIngress  = 100
	PriorityJobs     = 500
	PriorityCritical = 1000
)

type hook struct {
	label    string
	priority int
	fn       func()
}

var (
	mu            sync.Mutex
	shutdownHooks []hook
)

var Shutdown = sync.OnceFunc(func() {
	mu.Lock()
	hooks := shutdownHooks
	shutdownHooks = nil
	mu.Unlock()

	if len(hooks) == 0 {
		return
	}
	logger.Infof("Shutting down")

	sort.SliceStable(hooks, func(i, j int) bool {
		return hooks[i].priority < hooks[j].priority
	})
	for _, h := range hooks {
		logger.Debugf("shutdown: %s", h.label)
		h.fn()
	}
})

func ShutdownAndExit(code int, msg string) {
	Shutdown()
	logger.StandardLogger().WithSkipReportLevel(1).Errorf("%s", msg)
	os.Exit(code)
}

func AddHook(fn func()) {
	AddHookWithPriority("", PriorityJobs, fn)
}

func AddHookWithPriority(label string, priority int, fn func()) {
	mu.Lock()
	defer mu.Unlock()
	shutdownHooks = append(shutdownHooks, hook{label: label, priority: priority, fn: fn})
}

func WaitForSignal() {
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Infof("Caught signal, shutting down")
		// call shutdown hooks explicitly, post-run cleanup hooks will be a no-op
		Shutdown()
	}()
}
