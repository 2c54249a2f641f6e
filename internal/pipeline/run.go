// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"

	"github.com/redhat-cip/dci-pipeline/internal/runtime"
)

// Run loads a pipeline document set (applying overrides and vault
// decryption per §4.6) and runs every resulting job-def to completion
// through ex. The returned runtime.Outcome maps to a process exit code
// via (*runtime.Runtime).ExitCode.
func Run(ctx context.Context, ex *Executor, opts LoadOptions) ([]JobDefResult, runtime.Outcome, error) {
	jobDefs, pipelineOpts, err := LoadPipeline(ctx, opts)
	if err != nil {
		return nil, runtime.Outcome{}, err
	}
	results, outcome := ex.RunPipeline(ctx, jobDefs, pipelineOpts)
	return results, outcome, nil
}
