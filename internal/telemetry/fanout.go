package telemetry

import "context"

// ServiceStatsRecord tags a Sample with the infrastructure service it came
// from, for the aggregate multiplexed stream.
type ServiceStatsRecord struct {
	Service string `json:"service"`
	Sample
}

// FanInServiceStats merges several named stats producers into one channel.
// The merged stream stays open until ctx is cancelled (client disconnect),
// not merely until every per-service producer has settled.
func FanInServiceStats(ctx context.Context, producers map[string]<-chan Sample) <-chan ServiceStatsRecord {
	out := make(chan ServiceStatsRecord, 16)

	go func() {
		defer close(out)

		done := make(chan struct{})
		active := len(producers)
		if active == 0 {
			<-ctx.Done()
			return
		}

		for name, ch := range producers {
			go func(service string, ch <-chan Sample) {
				defer func() { done <- struct{}{} }()
				for {
					select {
					case sample, ok := <-ch:
						if !ok {
							return
						}
						select {
						case out <- ServiceStatsRecord{Service: service, Sample: sample}:
						case <-ctx.Done():
							return
						}
					case <-ctx.Done():
						return
					}
				}
			}(name, ch)
		}

		// Wait for cancellation; per-producer goroutines drain independently
		// and the whole fan-in tears down once ctx is cancelled, regardless
		// of whether any individual producer has already settled.
		settled := 0
		for settled < active {
			select {
			case <-done:
				settled++
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()

	return out
}
