// Package client provides the Go SDK for driving a buildd controller over
// HTTP: job, view, plugin, and credential management, plus a client-side
// reservation protocol for the controller's lockable resource pool.
//
// # Quick start
//
// Construct a client with client.New and an optional basic-auth token:
//
//	cli, err := client.New("http://buildd.example.com:8080",
//	    client.WithBasicAuth("ci-bot", token),
//	    client.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	jobs, err := cli.Jobs().List(ctx)
//
// # Lockable resources
//
// The controller tracks a pool of named, labeled resources that independent
// clients compete for. The SDK's view of the pool is a polled snapshot that
// can be arbitrarily stale; every reservation is arbitrated by the server,
// which answers HTTP 423 when a resource is already taken. The reservation
// engine turns that into a safe acquire loop:
//
//	pool, err := cli.LockableResources(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res := pool.ReservationByLabel("gpu", client.FixedRetry{
//	    SleepPeriod: 5 * time.Second,
//	    Timeout:     10 * time.Minute,
//	})
//	err = res.Do(ctx, func(ctx context.Context, name string) error {
//	    // the resource named name is reserved for this block
//	    return runTests(ctx, name)
//	})
//
// Do releases the resource on every exit path, including handler errors. For
// manual control use Acquire/Release; Release is idempotent and a Reservation
// can be reused for another cycle after release.
//
// Lower-level pieces are exported for custom flows: Poll/IsFree/IsReserved/
// Reserve/Unreserve on the pool, TryReserve for a single non-blocking scan,
// WaitReserve for a bounded wait, and the Selector constructors SelectName,
// SelectNames, and SelectLabel. A reserve answered with 423 surfaces as
// *ResourceLockedError; an exhausted wait as *ReservationTimeoutError.
//
// The pool and reservations assume a single caller; wrap them with your own
// synchronization when sharing across goroutines. The Client itself is safe
// for concurrent use.
package client
