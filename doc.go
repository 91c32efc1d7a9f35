/*
go-segmask cuts the objects found by an instance segmentation model out of an
image.

A Segmenter returns one Mask per detected object.  AggregateMasks unions those
masks into a single foreground mask and ApplyMask zeroes every pixel outside
it, producing an image that only contains the segmented objects.  Cutout does
the same using an alpha channel instead of black pixels.

Images carry their channel order (RGB or BGR) so pixels read with OpenCV and
written with either OpenCV or the Go image encoders keep their colors.

The rknnseg package provides a Segmenter running YOLOv8-seg models on the
Rockchip NPU, the pipeline package ties loading, segmentation, masking and
writing together and cmd/segmask is the command line tool.
*/
package segmask
