/*
   Long-running components executed together as a group. The rank command
   runs the rank service (one job run, or one every update interval) next
   to the optional metrics exporter. When the rank service returns, the
   exporter is cancelled with it.
*/
package service

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/xerrors"
)

type Service interface {
	Name() string

	// Run executes the service and blocks until the context gets cancelled,
	// the service completes its work or an error occurs.
	Run(context.Context) error
}

type ServiceGroup []Service

// Run executes all Service instances in the group using the provided context.
// The first service to return, with or without an error, cancels the
// others. Calls to Run block until every service has returned.
func (g ServiceGroup) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, len(g))
	wg.Add(len(g))
	for _, s := range g {
		go func(s Service) {
			defer wg.Done()
			if err := s.Run(runCtx); err != nil {
				errCh <- xerrors.Errorf("%s: %w", s.Name(), err)
			}
			cancel()
		}(s)
	}
	wg.Wait()

	var err error
	close(errCh)
	for svcErr := range errCh {
		err = multierror.Append(err, svcErr)
	}
	return err
}
