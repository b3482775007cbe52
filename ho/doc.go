// Package ho provides sequential model-based hyperparameter optimization.
// Given a named search space and an objective to minimize, Minimize proposes
// one sample at a time, learning from every (sample, loss) pair seen so far.
//
// # Features
//
// The package includes the following key features:
//
//   - Tree-structured Parzen Estimator (TPE): the default algorithm, with the
//     familiar hyperopt settings (20 startup trials, gamma 0.25, 24 candidates)
//   - Gaussian Process regression with pluggable acquisition functions:
//     Upper Confidence Bound (UCB), Probability of Improvement (PI),
//     Expected Improvement (EI), and Thompson Sampling
//   - Pure random search as a baseline
//   - Named distributions: LogUniform, Uniform and QUniform (optionally integer)
//   - Reproducible runs: every random draw comes from the seeded generator
//   - Introspectable history through Trials
//   - Progress Monitoring: Real-time updates on optimization progress via channels
//
// # Search space
//
//	space := ho.Space{
//	    {Name: "weight_decay", Distribution: ho.LogUniform{Low: 1e-4, High: 1e-2}},
//	    {Name: "lr", Distribution: ho.LogUniform{Low: 1e-4, High: 1e-2}},
//	    {Name: "step_size", Distribution: ho.QUniform{Low: 10, High: 31, Q: 10, Integer: true}},
//	    {Name: "lr_decay", Distribution: ho.Uniform{Low: 0.5, High: 1}},
//	}
//
// # Algorithms
//
// 1. TPE (default):
//
//	config := ho.DefaultConfig()
//	config.Seed = 111
//
// 2. Gaussian Process:
//
//	config := ho.DefaultConfig()
//	config.Algorithm = ho.GP
//	config.AcquisitionFunc = ho.ExpectedImprovement
//	config.AcqParams.Xi = 0.01
//
// 3. Random:
//
//	config := ho.DefaultConfig()
//	config.Algorithm = ho.Random
//
// # Losses
//
// The objective returns a loss; lower is better. To maximize a score such as
// accuracy, return its negation. Returning an error aborts the run; the
// trials evaluated so far are still returned.
package ho
