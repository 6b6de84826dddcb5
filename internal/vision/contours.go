//go:build vision

package vision

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"plate-service/internal/recognition"
)

// ContourDetector ищет прямоугольные контуры, похожие на номерной знак.
type ContourDetector struct {
	maxContours int
}

func NewContourDetector(maxContours int) *ContourDetector {
	if maxContours <= 0 {
		maxContours = DefaultMaxContours
	}
	return &ContourDetector{maxContours: maxContours}
}

func (d *ContourDetector) Regions(ctx context.Context, frame []byte) (*recognition.Scan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := gocv.IMDecode(frame, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("failed to decode image: empty result")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	gocv.EqualizeHist(gray, &gray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{5, 5}, 0, 0, gocv.BorderDefault)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.AdaptiveThreshold(blurred, &thresh, 255,
		gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinaryInv, 11, 2)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(thresh, &edges, 30, 200)

	found := gocv.FindContours(edges, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer found.Close()

	contours := make([]contour, 0, found.Size())
	for i := 0; i < found.Size(); i++ {
		c := found.At(i)
		approx := gocv.ApproxPolyDP(c, approxEpsilon, true)
		contours = append(contours, contour{
			area:     gocv.ContourArea(c),
			vertices: approx.Size(),
			bounds:   gocv.BoundingRect(approx),
		})
		approx.Close()
	}

	scan := &recognition.Scan{}
	for i, c := range plateCandidates(contours, d.maxContours) {
		bounds := clampRect(c.bounds, gray.Cols(), gray.Rows())
		if bounds.Empty() {
			continue
		}
		crop := gray.Region(bounds)
		raster, err := encodePNG(crop)
		crop.Close()
		if err != nil {
			return nil, err
		}
		scan.Regions = append(scan.Regions, recognition.Region{
			Index:  i,
			Area:   c.area,
			Bounds: bounds,
			Raster: raster,
		})
	}

	if scan.Frame, err = encodePNG(thresh); err != nil {
		return nil, err
	}
	return scan, nil
}

func encodePNG(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
