/*
Package rknn is a minimal binding to the RKNN Toolkit2 C runtime used to run
compiled models on the Rockchip NPU.  It loads a model, reports its tensor
attributes and runs single image inference, copying the output tensors into
Go memory.

The librknnrt shared library and rknn_api.h header must be installed on the
build host.
*/
package rknn
