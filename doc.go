/*
go-flowmetrics computes evaluation metrics for optical flow estimation
models and the auxiliary outputs such models commonly produce (occlusion
masks, motion boundary masks and flow confidence maps).

The core of the package is the FlowMetrics accumulator.  It consumes
streaming batches of prediction and groundtruth tensors via Update() and
derives averaged accuracy statistics via Compute(): endpoint error,
pixel-threshold accuracies, the Fl-all bad pixel percentage, a weighted
area-under-curve score and F1 scores for the auxiliary mask estimations.
Running state is kept as plain accumulable sums so replicas updated in
parallel workers can be combined with Merge() before a single final
division.

See example code and usage in the example subdirectory.
*/
package flowmetrics
