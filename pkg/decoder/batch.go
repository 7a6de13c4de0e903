package decoder

import "sync"

// parallelMap applies fn to every item using up to threads concurrent
// workers, returning results in the same order as items regardless of
// completion order.
func parallelMap[T, R any](items []T, threads int, fn func(T) R) []R {
	if threads < 1 {
		threads = 1
	}
	results := make([]R, len(items))
	sem := make(chan struct{}, threads)
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = fn(item)
		}(i, item)
	}
	wg.Wait()
	return results
}

// BatchTrain runs the parallel gradient-computation phase of training
// over samples (each sample gets its own private Lattice and only reads
// d.Model), then serially, in input order, applies every resulting
// weight update. This keeps the weight updates deterministic while still
// parallelizing the expensive decode/early-update work.
func (d *Decoder) BatchTrain(samples []Sample, threads int) BatchMetrics {
	grads := parallelMap(samples, threads, func(s Sample) gradSample {
		return d.computeSampleGradient(s.Code, s.Text)
	})

	var m BatchMetrics
	for _, g := range grads {
		m.Count++
		if !g.ok {
			continue
		}
		m.Success++
		if g.result.Label == 0 {
			m.CorrectTop++
		}
		if g.result.Prob > 0 {
			m.LossSum += negLog(g.result.Prob)
		}
		if g.result.EarlyStopped {
			m.EarlyStops++
		}
		for _, u := range g.updates {
			it := g.lt.Features(u.nodeIdx)
			d.Model.Update(it, u.delta)
		}
	}
	return m
}

// Epoch runs one epoch of batched training over samples in batches of
// batchSize, using threads workers per batch, and returns whole-epoch
// aggregate metrics (not a running average of the per-batch metrics).
func (d *Decoder) Epoch(samples []Sample, batchSize, threads int) BatchMetrics {
	var agg BatchMetrics
	for start := 0; start < len(samples); start += batchSize {
		end := start + batchSize
		if end > len(samples) {
			end = len(samples)
		}
		agg.Add(d.BatchTrain(samples[start:end], threads))
	}
	return agg
}
